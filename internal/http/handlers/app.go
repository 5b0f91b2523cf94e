package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"genengine/internal/adapter/repo"
	"genengine/internal/infra"
	"genengine/internal/storage"
)

// App carries the dependencies shared by every HTTP handler.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Requests *repo.RequestRepo
	Assets   *repo.AssetRepo
	Store    *storage.FileStore
	// Models is the allow-list of model identifiers the worker can serve.
	Models []string
}

func NewApp(cfg *infra.Config, logger infra.Logger, sql infra.SQLExecutor, store *storage.FileStore, models []string) *App {
	return &App{
		Config:   cfg,
		Logger:   logger,
		Requests: repo.NewRequestRepo(sql),
		Assets:   repo.NewAssetRepo(sql),
		Store:    store,
		Models:   models,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (a *App) modelAllowed(model string) bool {
	for _, m := range a.Models {
		if m == model {
			return true
		}
	}
	return false
}

func (a *App) assetURL(storageKey string) string {
	base := strings.TrimRight(a.Config.StorageBaseURL, "/")
	return base + "/" + strings.TrimLeft(storageKey, "/")
}
