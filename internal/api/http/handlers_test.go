package http

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	alertsapp "fleetwatch/internal/alerts/application"
	alertmem "fleetwatch/internal/alerts/infrastructure/memory"
	anomalyapp "fleetwatch/internal/anomalies/application"
	anomalymem "fleetwatch/internal/anomalies/infrastructure/memory"
	fleetapp "fleetwatch/internal/fleet/application"
	fleet "fleetwatch/internal/fleet/domain"
	fleetmem "fleetwatch/internal/fleet/infrastructure/memory"
)

func newDevicesHandler(t *testing.T, states []fleet.DeviceState) *DevicesHandler {
	t.Helper()
	logs := fleetmem.NewLogRepository()
	if err := logs.ReplaceAll(context.Background(), states); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	service, err := fleetapp.NewService(logs, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewDevicesHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestDevicesList(t *testing.T) {
	handler := newDevicesHandler(t, []fleet.DeviceState{
		{Project: "nova", Name: "W7", Sync: fleet.FailureCounter{Current: 2, Total: 5}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var views []deviceView
	if err := json.Unmarshal(resp.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].ID != "nova-W7" {
		t.Fatalf("unexpected views: %+v", views)
	}
	if views[0].Counters["sync"].Current != 2 || views[0].Counters["sync"].Total != 5 {
		t.Fatalf("unexpected counters: %+v", views[0].Counters)
	}
}

func TestDevicesReset(t *testing.T) {
	handler := newDevicesHandler(t, []fleet.DeviceState{
		{Project: "nova", Name: "W7", Sync: fleet.FailureCounter{Current: 2, Total: 5}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/nova-W7/reset", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var view deviceView
	if err := json.Unmarshal(resp.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Counters["sync"].Current != 0 || view.Counters["sync"].Total != 0 {
		t.Fatalf("expected cleared counters, got %+v", view.Counters)
	}
}

func TestDevicesResetUnknown(t *testing.T) {
	handler := newDevicesHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/nova-missing/reset", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestConfigSaveThenList(t *testing.T) {
	repo := alertmem.NewConfigRepository()
	service, err := alertsapp.NewConfigService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewConfigHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"project":"nova","watch":"W7","email":"ops@uni.edu","manager":"mgr@uni.edu","currentSyncThr":3,"endDate":"2024-12-31"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/config", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/alerts/config", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payloads []configPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payloads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payloads) != 1 || payloads[0].Watch != "W7" || payloads[0].CurrentSyncThr != 3 {
		t.Fatalf("unexpected payloads: %+v", payloads)
	}
	if payloads[0].EndDate != "2024-12-31" {
		t.Fatalf("unexpected end date: %q", payloads[0].EndDate)
	}
}

func TestConfigSaveRejectsBadDate(t *testing.T) {
	service, err := alertsapp.NewConfigService(alertmem.NewConfigRepository(), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewConfigHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"project":"nova","endDate":"31/12/2024"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/config", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func newAnomaliesHandler(t *testing.T) *AnomaliesHandler {
	t.Helper()
	service, err := anomalyapp.NewService(anomalymem.NewStore(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewAnomaliesHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func TestAnomaliesIngestListAck(t *testing.T) {
	handler := newAnomaliesHandler(t)

	body := `[{"phone":"555-0100","filledTime":"2024-03-01 09:00"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/suspicious", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("ingest: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/suspicious/ack", strings.NewReader(`{"phone":"555-0100"}`))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("ack: expected 204, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/suspicious", nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	var payloads []anomalyPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payloads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payloads) != 1 || !payloads[0].Accepted {
		t.Fatalf("unexpected payloads: %+v", payloads)
	}
}

func TestAnomaliesUnknownKind(t *testing.T) {
	handler := newAnomaliesHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/anomalies/stolen", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAnomaliesAckUnknownPhone(t *testing.T) {
	handler := newAnomaliesHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomalies/late/ack", strings.NewReader(`{"phone":"555-0199"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestReportsXLSX(t *testing.T) {
	logs := fleetmem.NewLogRepository()
	if err := logs.ReplaceAll(context.Background(), []fleet.DeviceState{{Project: "nova", Name: "W7"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	service, err := fleetapp.NewService(logs, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewReportsHandler(service)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/fleet.xlsx", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", got)
	}
	if resp.Body.Len() == 0 {
		t.Fatal("expected workbook bytes")
	}
}
