package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"genengine/internal/adapter/repo"
	"genengine/internal/domain"

	"github.com/go-chi/chi/v5"
)

func (a *App) ListAssets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	requestID := r.URL.Query().Get("request_id")
	assets, err := a.Assets.List(r.Context(), requestID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list assets failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load assets")
		return
	}
	items := make([]map[string]any, 0, len(assets))
	for _, asset := range assets {
		items = append(items, a.assetItem(asset))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// DownloadAsset serves the stored bytes with the recorded MIME type.
func (a *App) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")
	if assetID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "asset id required")
		return
	}
	asset, err := a.Assets.Get(r.Context(), assetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "asset not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load asset")
		return
	}
	data, err := a.Store.Read(r.Context(), asset.StorageKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("storage_key", asset.StorageKey).Msg("handlers: read asset failed")
		a.error(w, http.StatusNotFound, "not_found", "asset data missing")
		return
	}
	mime := asset.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", path.Base(asset.StorageKey)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) assetItem(asset domain.StoredAsset) map[string]any {
	return map[string]any{
		"id":            asset.ID,
		"request_id":    asset.RequestID,
		"variant_index": asset.VariantIndex,
		"platform":      asset.Platform,
		"aspect_ratio":  asset.AspectRatio,
		"url":           a.assetURL(asset.StorageKey),
		"mime":          asset.MIME,
		"bytes":         asset.Bytes,
		"width":         asset.Width,
		"height":        asset.Height,
		"attempts":      asset.Attempts,
		"threshold_met": asset.ThresholdMet,
		"corrected":     asset.Corrected,
		"properties":    json.RawMessage(asset.Properties),
		"created_at":    asset.CreatedAt,
	}
}
