package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"genengine/internal/adapter/repo"
	"genengine/internal/domain"
	handlers "genengine/internal/http/handlers"
	"genengine/internal/http/httpapi"

	"github.com/rs/zerolog"
)

func TestListAssetsEmpty(t *testing.T) {
	runner := newFakeSQLRunner()
	app := handlers.NewApp(testConfig(), zerolog.Nop(), runner, nil, testModels())
	router := httpapi.NewRouter(app, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Items) != 0 {
		t.Fatalf("items = %d, want %d", len(body.Items), 0)
	}
}

func TestDownloadAssetNotFound(t *testing.T) {
	runner := newFakeSQLRunner()
	app := handlers.NewApp(testConfig(), zerolog.Nop(), runner, nil, testModels())
	router := httpapi.NewRouter(app, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/assets/missing/download", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRequestBundleWithoutAssets(t *testing.T) {
	ctx := context.Background()
	runner := newFakeSQLRunner()
	requests := repo.NewRequestRepo(runner)
	id, err := requests.Enqueue(ctx, domain.ModalityImage, "synthetic", 1, []byte(`{"modality":"image"}`))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	app := handlers.NewApp(testConfig(), zerolog.Nop(), runner, nil, testModels())
	router := httpapi.NewRouter(app, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/requests/"+id+"/bundle", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d; body=%s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestStatsSummaryHandler(t *testing.T) {
	ctx := context.Background()
	runner := newFakeSQLRunner()
	requests := repo.NewRequestRepo(runner)

	first, err := requests.Enqueue(ctx, domain.ModalityImage, "synthetic", 1, []byte(`{}`))
	if err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if _, err := requests.Enqueue(ctx, domain.ModalityImage, "synthetic", 2, []byte(`{}`)); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}
	if err := requests.UpdateStatus(ctx, first, domain.JobStatusSucceeded, nil); err != nil {
		t.Fatalf("update status: %v", err)
	}

	app := handlers.NewApp(testConfig(), zerolog.Nop(), runner, nil, testModels())
	router := httpapi.NewRouter(app, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body struct {
		Queued    int64 `json:"queued"`
		Succeeded int64 `json:"succeeded"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Queued != 1 {
		t.Fatalf("queued = %d, want %d", body.Queued, 1)
	}
	if body.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want %d", body.Succeeded, 1)
	}
}

func TestHealthListsModels(t *testing.T) {
	app := handlers.NewApp(testConfig(), zerolog.Nop(), newFakeSQLRunner(), nil, testModels())
	router := httpapi.NewRouter(app, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body struct {
		Status string   `json:"status"`
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Status != "ok" {
		t.Fatalf("health status = %q, want %q", body.Status, "ok")
	}
	if len(body.Models) != len(testModels()) {
		t.Fatalf("models = %d, want %d", len(body.Models), len(testModels()))
	}
}
