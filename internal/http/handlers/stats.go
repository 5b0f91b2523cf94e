package handlers

import (
	"net/http"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Requests.Stats(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"queued":            stats.Queued,
		"running":           stats.Running,
		"succeeded":         stats.Succeeded,
		"partial":           stats.Partial,
		"failed":            stats.Failed,
		"requests_last_24h": stats.RequestsLast24,
		"assets_last_24h":   stats.AssetsLast24,
	})
}
