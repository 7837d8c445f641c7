package excel

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

// Workbook wraps one xlsx file used as a shared table store. Sheets are
// read and replaced in full; a mutex serializes access because the poll
// job and the HTTP API can touch the same file.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// NewWorkbook opens or creates the workbook file at path.
func NewWorkbook(path string) (*Workbook, error) {
	if path == "" {
		return nil, errors.New("excel: empty workbook path")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		f := excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("excel: create workbook: %w", err)
		}
		_ = f.Close()
	} else if err != nil {
		return nil, fmt.Errorf("excel: stat workbook: %w", err)
	}
	return &Workbook{path: path}, nil
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// ReadSheet returns all rows of a sheet, including the header row. A
// missing sheet reads as empty, not as an error.
func (w *Workbook) ReadSheet(sheet string) ([][]string, error) {
	if w == nil {
		return nil, errors.New("excel: nil workbook")
	}
	if sheet == "" {
		return nil, errors.New("excel: empty sheet name")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("excel: open workbook: %w", err)
	}
	defer f.Close()

	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: sheet index: %w", err)
	}
	if index < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// WriteSheet replaces a sheet's contents with header plus rows.
func (w *Workbook) WriteSheet(sheet string, header []string, rows [][]string) error {
	if w == nil {
		return errors.New("excel: nil workbook")
	}
	if sheet == "" {
		return errors.New("excel: empty sheet name")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("excel: open workbook: %w", err)
	}
	defer f.Close()

	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("excel: sheet index: %w", err)
	}
	if index >= 0 {
		if err := f.DeleteSheet(sheet); err != nil {
			return fmt.Errorf("excel: reset sheet %s: %w", sheet, err)
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("excel: new sheet %s: %w", sheet, err)
	}

	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("excel: save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("excel: cell name: %w", err)
	}
	row := make([]any, len(values))
	for i, value := range values {
		row[i] = value
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("excel: write row %d on %s: %w", rowNum, sheet, err)
	}
	return nil
}
