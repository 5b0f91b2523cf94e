package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"genengine/internal/adapter/repo"
	"genengine/internal/backend"
	"genengine/internal/domain"
	"genengine/internal/domain/jsoncfg"
	"genengine/internal/infra"
	"genengine/internal/infra/credentials"
	"genengine/internal/orchestrator"
	"genengine/internal/quality"
	"genengine/internal/storage"
	"genengine/internal/strategy"
)

type requestWorker struct {
	ctx      context.Context
	logger   infra.Logger
	engine   *orchestrator.Engine
	requests *repo.RequestRepo
	assets   *repo.AssetRepo
	store    *storage.FileStore
	poll     time.Duration
}

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	storageDir := cfg.StorageDir
	if !filepath.IsAbs(storageDir) {
		if abs, err := filepath.Abs(storageDir); err == nil {
			storageDir = abs
		}
	}
	fileStore, err := storage.NewFileStore(storageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	dashScopeAPIKey := strings.TrimSpace(cfg.DashScopeAPIKey)
	if geminiAPIKey == "" || dashScopeAPIKey == "" {
		credStore := credentials.NewStore(runner)
		if geminiAPIKey == "" {
			if key, err := credStore.APIKey(ctx, credentials.ProviderGemini); err != nil {
				logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
			} else {
				geminiAPIKey = key
			}
		}
		if dashScopeAPIKey == "" {
			if key, err := credStore.APIKey(ctx, credentials.ProviderDashScope); err != nil {
				logger.Warn().Err(err).Msg("worker: failed to load dashscope api key from store")
			} else {
				dashScopeAPIKey = key
			}
		}
	}

	registry := backend.BuildRegistry(backend.RegistryOptions{
		GeminiAPIKey:     geminiAPIKey,
		GeminiModel:      cfg.GeminiModel,
		GeminiBaseURL:    cfg.GeminiBaseURL,
		DashScopeAPIKey:  dashScopeAPIKey,
		QwenModel:        cfg.QwenModel,
		DashScopeBaseURL: cfg.DashScopeBaseURL,
		Logger:           &logger,
	})

	var composer strategy.Composer
	var scorer quality.Scorer = quality.NewHeuristicScorer()
	if geminiAPIKey != "" {
		httpClient := &http.Client{Timeout: 60 * time.Second}
		if c, err := strategy.NewGeminiComposer(strategy.GeminiComposerOptions{
			APIKey:     geminiAPIKey,
			Model:      cfg.ComposeModel,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
		}); err != nil {
			logger.Warn().Err(err).Msg("worker: gemini composer unavailable, composing offline")
		} else {
			composer = c
		}
		if s, err := quality.NewGeminiScorer(quality.GeminiScorerOptions{
			APIKey:     geminiAPIKey,
			Model:      cfg.ComposeModel,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
		}); err != nil {
			logger.Warn().Err(err).Msg("worker: gemini scorer unavailable, scoring heuristically")
		} else {
			scorer = s
		}
	} else {
		logger.Warn().Msg("worker: no gemini api key, running with synthetic backends and heuristic scoring")
	}

	retry := backend.RetryPolicy{
		MaxRetries: cfg.RetryMaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
		Jitter:     0.25,
		Logger:     logger,
	}
	engine := orchestrator.New(orchestrator.Options{
		Registry: registry,
		Limiter:  backend.NewLimiter(cfg.BackendConcurrency),
		Retry:    &retry,
		Scorer:   scorer,
		Composer: composer,
		Defaults: orchestrator.RequestDefaults{
			Model:            cfg.GeminiModel,
			Modality:         domain.ModalityImage,
			QualityThreshold: cfg.QualityThreshold,
			MaxAttempts:      cfg.MaxAttempts,
		},
		AttemptTimeout:     cfg.AttemptTimeout,
		BatchTimeout:       cfg.BatchTimeout,
		VariantConcurrency: cfg.VariantConcurrency,
		Logger:             &logger,
	})

	worker := &requestWorker{
		ctx:      ctx,
		logger:   logger,
		engine:   engine,
		requests: repo.NewRequestRepo(runner),
		assets:   repo.NewAssetRepo(runner),
		store:    fileStore,
		poll:     cfg.WorkerPollInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *requestWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		job, err := w.requests.Claim(w.ctx)
		if err != nil {
			if errors.Is(err, repo.ErrNoJobQueued) {
				time.Sleep(w.poll)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim request")
			time.Sleep(w.poll)
			continue
		}

		w.handleJob(job)
	}
}

func (w *requestWorker) handleJob(job *domain.Job) {
	w.logger.Info().
		Str("request_id", job.ID).
		Str("model", job.Model).
		Int("variants", job.VariantCount).
		Msg("worker: picked request")

	status, summary := w.processJob(job)
	if err := w.requests.UpdateStatus(w.ctx, job.ID, status, summary); err != nil {
		w.logger.Error().Err(err).Str("request_id", job.ID).Msg("worker: update status failed")
	}
	w.logger.Info().Str("request_id", job.ID).Str("status", string(status)).Msg("worker: request done")
}

func (w *requestWorker) processJob(job *domain.Job) (domain.JobStatus, []byte) {
	var spec jsoncfg.JobSpec
	if err := json.Unmarshal(job.SpecJSON, &spec); err != nil {
		w.logger.Error().Err(err).Str("request_id", job.ID).Msg("worker: invalid job spec")
		return domain.JobStatusFailed, jsoncfg.MustMarshal(map[string]any{"error": "invalid job spec"})
	}
	spec.Normalize("")
	if spec.Model == "" {
		spec.Model = job.Model
	}

	result, err := w.engine.Orchestrate(w.ctx, spec.VariantSpecs(), spec.RequestContext())
	if err != nil {
		w.logger.Error().Err(err).Str("request_id", job.ID).Msg("worker: orchestration failed")
		return domain.JobStatusFailed, jsoncfg.MustMarshal(map[string]any{
			"error":   err.Error(),
			"message": domain.UserMessage(err, spec.Context.Locale),
		})
	}

	succeeded := 0
	var failures []map[string]any
	for i, res := range result.Results {
		if !res.Succeeded() {
			failure := map[string]any{
				"variant": res.Spec.Key(),
				"error":   errorMessage(res.Err),
			}
			if msg := domain.UserMessage(res.Err, spec.Context.Locale); msg != "" {
				failure["message"] = msg
			}
			failures = append(failures, failure)
			continue
		}
		if err := w.persistResult(job.ID, i, res, result.Content.Strategy); err != nil {
			w.logger.Error().Err(err).
				Str("request_id", job.ID).
				Str("variant", res.Spec.Key()).
				Msg("worker: persist variant failed")
			failures = append(failures, map[string]any{
				"variant": res.Spec.Key(),
				"error":   err.Error(),
			})
			continue
		}
		succeeded++
	}

	summary := map[string]any{
		"strategy":    result.Strategy.Strategy,
		"produced_by": result.Content.Strategy,
		"headline":    result.Content.Headline,
		"caption":     result.Content.Caption,
		"tags":        result.Content.Tags,
		"succeeded":   succeeded,
		"failed":      len(result.Results) - succeeded,
	}
	if len(failures) > 0 {
		summary["failures"] = failures
	}

	switch {
	case succeeded == len(result.Results):
		return domain.JobStatusSucceeded, jsoncfg.MustMarshal(summary)
	case succeeded > 0:
		return domain.JobStatusPartial, jsoncfg.MustMarshal(summary)
	default:
		return domain.JobStatusFailed, jsoncfg.MustMarshal(summary)
	}
}

// persistResult writes the artifact bytes to storage and records the asset
// row. URL-only artifacts keep the remote URL as their storage key.
func (w *requestWorker) persistResult(jobID string, index int, res domain.VariantResult, strategyName string) error {
	artifact := res.Artifact
	key := strings.TrimSpace(artifact.URL)
	if len(artifact.Data) > 0 {
		targetKey := defaultStorageKey(jobID, artifact.ContentType, index)
		savedKey, err := w.store.Write(w.ctx, targetKey, artifact.Data)
		if err != nil {
			return fmt.Errorf("store artifact: %w", err)
		}
		key = savedKey
	}
	if key == "" {
		return errors.New("artifact carries neither data nor url")
	}

	props := map[string]any{"strategy": strategyName}
	if artifact.URL != "" && artifact.URL != key {
		props["source_url"] = artifact.URL
	}
	if len(res.History) > 0 {
		last := res.History[len(res.History)-1]
		if last.Scored {
			props["score"] = last.Score
		}
	}

	_, err := w.assets.Insert(w.ctx, domain.StoredAsset{
		RequestID:    jobID,
		VariantIndex: index,
		Platform:     res.Spec.Platform,
		AspectRatio:  res.Spec.AspectRatio,
		StorageKey:   key,
		MIME:         artifact.ContentType,
		Bytes:        artifact.Size(),
		Width:        artifact.Width,
		Height:       artifact.Height,
		Attempts:     res.Attempts,
		ThresholdMet: res.ThresholdMet,
		Corrected:    res.Corrected,
		Properties:   jsoncfg.MustMarshal(props),
	})
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func errorMessage(err error) string {
	if err == nil {
		return "no artifact produced"
	}
	return err.Error()
}

func defaultStorageKey(jobID, mime string, index int) string {
	category := "images"
	prefix := "variant"
	if strings.HasPrefix(mime, "video/") {
		category = "videos"
	}
	if index < 0 {
		index = 0
	}
	ext := extensionForMIME(mime)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("generated/%s/%s/%s-%02d%s", category, jobID, prefix, index+1, ext)
}

func extensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	default:
		return ""
	}
}
