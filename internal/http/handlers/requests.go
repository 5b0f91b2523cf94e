package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"genengine/internal/adapter/repo"
	"genengine/internal/domain"
	"genengine/internal/domain/jsoncfg"
	"genengine/internal/middleware"
	"genengine/pkg/zip"

	"github.com/go-chi/chi/v5"
)

type generateResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Model     string `json:"model"`
	Variants  int    `json:"variants"`
}

// RequestsCreate validates a job spec and queues it for the worker.
func (a *App) RequestsCreate(w http.ResponseWriter, r *http.Request) {
	var spec jsoncfg.JobSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	spec.Normalize(locale)
	if err := spec.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if spec.Model == "" {
		spec.Model = a.Config.GeminiModel
	}
	if !a.modelAllowed(spec.Model) {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported model")
		return
	}
	for _, variant := range spec.Variants {
		if variant.Model != "" && !a.modelAllowed(variant.Model) {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unsupported variant model %q", variant.Model))
			return
		}
	}
	specBytes, err := json.Marshal(spec)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to encode spec")
		return
	}
	requestID, err := a.Requests.Enqueue(r.Context(), domain.Modality(spec.Modality), spec.Model, len(spec.Variants), specBytes)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: enqueue request failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue request")
		return
	}
	a.json(w, http.StatusAccepted, generateResponse{
		RequestID: requestID,
		Status:    string(domain.JobStatusQueued),
		Model:     spec.Model,
		Variants:  len(spec.Variants),
	})
}

func (a *App) RequestStatus(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "request id required")
		return
	}
	job, err := a.Requests.Get(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		a.Logger.Error().Err(err).Str("request_id", requestID).Msg("handlers: load request failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load request")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"id":            job.ID,
		"status":        job.Status,
		"modality":      job.Modality,
		"model":         job.Model,
		"variant_count": job.VariantCount,
		"properties":    json.RawMessage(job.Properties),
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	})
}

// RequestBundle streams every stored asset of a request as one zip download.
func (a *App) RequestBundle(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")
	if requestID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "request id required")
		return
	}
	if _, err := a.Requests.Get(r.Context(), requestID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "request not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load request")
		return
	}
	stored, err := a.Assets.ListByRequest(r.Context(), requestID)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	if len(stored) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no assets for request")
		return
	}
	var entries []zip.Asset
	for _, asset := range stored {
		data, err := a.Store.Read(r.Context(), asset.StorageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("storage_key", asset.StorageKey).Msg("handlers: skipping unreadable asset")
			continue
		}
		entries = append(entries, zip.Asset{
			Filename: path.Base(asset.StorageKey),
			MIME:     asset.MIME,
			Data:     data,
		})
	}
	archive, err := zip.ArchiveAssets(entries)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=request-%s.zip", requestID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
