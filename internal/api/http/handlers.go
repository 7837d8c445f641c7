package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alertsapp "fleetwatch/internal/alerts/application"
	alerts "fleetwatch/internal/alerts/domain"
	anomalyapp "fleetwatch/internal/anomalies/application"
	anomalies "fleetwatch/internal/anomalies/domain"
	fleetapp "fleetwatch/internal/fleet/application"
	fleet "fleetwatch/internal/fleet/domain"
	"fleetwatch/internal/reports"
)

const dateLayout = "2006-01-02"

// DevicesHandler serves the fleet status and the counter reset action.
type DevicesHandler struct {
	service *fleetapp.Service
}

// NewDevicesHandler constructs a handler.
func NewDevicesHandler(service *fleetapp.Service) (*DevicesHandler, error) {
	if service == nil {
		return nil, errors.New("devices handler: nil service")
	}
	return &DevicesHandler{service: service}, nil
}

type deviceView struct {
	ID             string `json:"id"`
	Project        string `json:"project"`
	Name           string `json:"name"`
	LastCheck      string `json:"lastCheck,omitempty"`
	LastSynced     string `json:"lastSynced,omitempty"`
	LastBattery    string `json:"lastBattery,omitempty"`
	LastHR         string `json:"lastHR,omitempty"`
	LastSteps      string `json:"lastSteps,omitempty"`
	LastSleepStart string `json:"lastSleepStart,omitempty"`
	LastSleepEnd   string `json:"lastSleepEnd,omitempty"`

	Counters map[string]counterView `json:"counters"`
}

type counterView struct {
	Current uint `json:"current"`
	Total   uint `json:"total"`
}

func deviceViewOf(state fleet.DeviceState) deviceView {
	lastCheck := ""
	if !state.LastCheck.IsZero() {
		lastCheck = state.LastCheck.UTC().Format(time.RFC3339)
	}
	view := deviceView{
		ID:             state.ID(),
		Project:        state.Project,
		Name:           state.Name,
		LastCheck:      lastCheck,
		LastSynced:     state.LastSynced,
		LastBattery:    state.LastBattery,
		LastHR:         state.LastHR,
		LastSteps:      state.LastSteps,
		LastSleepStart: state.LastSleepStart,
		LastSleepEnd:   state.LastSleepEnd,
		Counters:       make(map[string]counterView, 4),
	}
	for _, cat := range fleet.Categories() {
		counter := state.Counter(cat)
		view.Counters[string(cat)] = counterView{Current: counter.Current, Total: counter.Total}
	}
	return view
}

// ServeHTTP handles /api/v1/devices and /api/v1/devices/{id}/reset.
func (h *DevicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/devices":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/devices/") && strings.HasSuffix(r.URL.Path, "/reset"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleReset(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *DevicesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.Devices(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]deviceView, 0, len(states))
	for _, state := range states {
		views = append(views, deviceViewOf(state))
	}
	writeJSON(w, views)
}

func (h *DevicesHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/devices/"), "/reset")
	id = strings.Trim(id, "/")
	if id == "" {
		http.Error(w, "device id is required", http.StatusBadRequest)
		return
	}
	state, err := h.service.ResetFailures(r.Context(), id)
	if errors.Is(err, fleetapp.ErrDeviceNotFound) {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, deviceViewOf(state))
}

// ConfigHandler serves the alert configuration table.
type ConfigHandler struct {
	service *alertsapp.ConfigService
}

// NewConfigHandler constructs a handler.
func NewConfigHandler(service *alertsapp.ConfigService) (*ConfigHandler, error) {
	if service == nil {
		return nil, errors.New("config handler: nil service")
	}
	return &ConfigHandler{service: service}, nil
}

type configPayload struct {
	Project string `json:"project"`
	Watch   string `json:"watch"`
	Email   string `json:"email"`
	Manager string `json:"manager"`

	CurrentSyncThr  uint `json:"currentSyncThr"`
	TotalSyncThr    uint `json:"totalSyncThr"`
	CurrentHrThr    uint `json:"currentHrThr"`
	TotalHrThr      uint `json:"totalHrThr"`
	CurrentSleepThr uint `json:"currentSleepThr"`
	TotalSleepThr   uint `json:"totalSleepThr"`
	CurrentStepsThr uint `json:"currentStepsThr"`
	TotalStepsThr   uint `json:"totalStepsThr"`
	BatteryThr      uint `json:"batteryThr"`

	EndDate string `json:"endDate,omitempty"`
}

func payloadOf(cfg alerts.Config) configPayload {
	payload := configPayload{
		Project:         cfg.Project,
		Watch:           cfg.Watch,
		Email:           cfg.Email,
		Manager:         cfg.Manager,
		CurrentSyncThr:  cfg.CurrentSyncThr,
		TotalSyncThr:    cfg.TotalSyncThr,
		CurrentHrThr:    cfg.CurrentHRThr,
		TotalHrThr:      cfg.TotalHRThr,
		CurrentSleepThr: cfg.CurrentSleepThr,
		TotalSleepThr:   cfg.TotalSleepThr,
		CurrentStepsThr: cfg.CurrentStepsThr,
		TotalStepsThr:   cfg.TotalStepsThr,
		BatteryThr:      cfg.BatteryThr,
	}
	if !cfg.EndDate.IsZero() {
		payload.EndDate = cfg.EndDate.Format(dateLayout)
	}
	return payload
}

func (p configPayload) toConfig() (alerts.Config, error) {
	cfg := alerts.Config{
		Project:         p.Project,
		Watch:           p.Watch,
		Email:           p.Email,
		Manager:         p.Manager,
		CurrentSyncThr:  p.CurrentSyncThr,
		TotalSyncThr:    p.TotalSyncThr,
		CurrentHRThr:    p.CurrentHrThr,
		TotalHRThr:      p.TotalHrThr,
		CurrentSleepThr: p.CurrentSleepThr,
		TotalSleepThr:   p.TotalSleepThr,
		CurrentStepsThr: p.CurrentStepsThr,
		TotalStepsThr:   p.TotalStepsThr,
		BatteryThr:      p.BatteryThr,
	}
	if p.EndDate != "" {
		endDate, err := time.Parse(dateLayout, p.EndDate)
		if err != nil {
			return alerts.Config{}, errors.New("endDate must be YYYY-MM-DD")
		}
		cfg.EndDate = endDate
	}
	return cfg, nil
}

// ServeHTTP handles /api/v1/alerts/config.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/v1/alerts/config" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		configs, err := h.service.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		payloads := make([]configPayload, 0, len(configs))
		for _, cfg := range configs {
			payloads = append(payloads, payloadOf(cfg))
		}
		writeJSON(w, payloads)
	case http.MethodPost:
		var payload configPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		cfg, err := payload.toConfig()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if cfg.Project == "" {
			http.Error(w, "project is required", http.StatusBadRequest)
			return
		}
		if err := h.service.Save(r.Context(), cfg); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// AnomaliesHandler serves the acknowledgement tables, anomaly ingest and
// the acknowledge action.
type AnomaliesHandler struct {
	service *anomalyapp.Service
}

// NewAnomaliesHandler constructs a handler.
func NewAnomaliesHandler(service *anomalyapp.Service) (*AnomaliesHandler, error) {
	if service == nil {
		return nil, errors.New("anomalies handler: nil service")
	}
	return &AnomaliesHandler{service: service}, nil
}

type anomalyPayload struct {
	Phone       string `json:"phone"`
	FilledTime  string `json:"filledTime,omitempty"`
	SentTime    string `json:"sentTime,omitempty"`
	HoursLate   string `json:"hoursLate,omitempty"`
	Accepted    bool   `json:"accepted"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

func anomalyPayloadOf(record anomalies.Anomaly) anomalyPayload {
	payload := anomalyPayload{
		Phone:      record.Phone,
		FilledTime: record.FilledTime,
		SentTime:   record.SentTime,
		HoursLate:  record.HoursLate,
		Accepted:   record.Accepted,
	}
	if !record.LastUpdated.IsZero() {
		payload.LastUpdated = record.LastUpdated.UTC().Format(time.RFC3339)
	}
	return payload
}

// ServeHTTP handles /api/v1/anomalies/{kind} and its ack subroute.
func (h *AnomaliesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/anomalies/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind, ok := anomalies.ParseKind(parts[0])
	if !ok {
		http.Error(w, "unknown anomaly kind", http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleList(w, r, kind)
	case len(parts) == 1 && r.Method == http.MethodPost:
		h.handleIngest(w, r, kind)
	case len(parts) == 2 && parts[1] == "ack" && r.Method == http.MethodPost:
		h.handleAck(w, r, kind)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *AnomaliesHandler) handleList(w http.ResponseWriter, r *http.Request, kind anomalies.Kind) {
	records, err := h.service.List(r.Context(), kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payloads := make([]anomalyPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, anomalyPayloadOf(record))
	}
	writeJSON(w, payloads)
}

func (h *AnomaliesHandler) handleIngest(w http.ResponseWriter, r *http.Request, kind anomalies.Kind) {
	var payloads []anomalyPayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	candidates := make([]anomalies.Anomaly, 0, len(payloads))
	for _, payload := range payloads {
		candidates = append(candidates, anomalies.Anomaly{
			Phone:      payload.Phone,
			FilledTime: payload.FilledTime,
			SentTime:   payload.SentTime,
			HoursLate:  payload.HoursLate,
		})
	}
	fresh, err := h.service.Ingest(r.Context(), kind, candidates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	views := make([]anomalyPayload, 0, len(fresh))
	for _, record := range fresh {
		views = append(views, anomalyPayloadOf(record))
	}
	writeJSON(w, views)
}

func (h *AnomaliesHandler) handleAck(w http.ResponseWriter, r *http.Request, kind anomalies.Kind) {
	var body struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" {
		http.Error(w, "phone is required", http.StatusBadRequest)
		return
	}
	err := h.service.Acknowledge(r.Context(), kind, body.Phone)
	if errors.Is(err, anomalies.ErrNotFound) {
		http.Error(w, "anomaly not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReportsHandler serves the fleet status exports.
type ReportsHandler struct {
	service *fleetapp.Service
}

// NewReportsHandler constructs a handler.
func NewReportsHandler(service *fleetapp.Service) (*ReportsHandler, error) {
	if service == nil {
		return nil, errors.New("reports handler: nil service")
	}
	return &ReportsHandler{service: service}, nil
}

// ServeHTTP handles /api/v1/reports/fleet.xlsx and fleet.pdf.
func (h *ReportsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	states, err := h.service.Devices(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	switch r.URL.Path {
	case "/api/v1/reports/fleet.xlsx":
		data, err := reports.BuildFleetStatusXLSX(states, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="fleet.xlsx"`)
		_, _ = w.Write(data)
	case "/api/v1/reports/fleet.pdf":
		data, err := reports.BuildFleetStatusPDF(states, now)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="fleet.pdf"`)
		_, _ = w.Write(data)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
