package backend

import (
	"genengine/internal/infra"
)

// RegistryOptions configures BuildRegistry for a deployment.
type RegistryOptions struct {
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	DashScopeAPIKey  string
	QwenModel        string
	DashScopeBaseURL string

	Logger *infra.Logger
}

// BuildRegistry assembles the model allow-list for a deployment. Providers
// with credentials get real invokers; without credentials the same model ids
// answer with deterministic synthetic artifacts so the pipeline still runs
// end to end in dev and CI.
func BuildRegistry(opts RegistryOptions) *Registry {
	registry := NewRegistry()

	geminiModel := opts.GeminiModel
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash-image-preview"
	}
	geminiReady := false
	if opts.GeminiAPIKey != "" {
		gemini, err := NewGemini(GeminiOptions{
			APIKey:  opts.GeminiAPIKey,
			BaseURL: opts.GeminiBaseURL,
			Model:   geminiModel,
			Logger:  opts.Logger,
		})
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn().Err(err).Msg("backend: gemini invoker unavailable, falling back to synthetic")
			}
		} else {
			registry.Register("gemini", gemini)
			registry.Register(geminiModel, gemini)
			geminiReady = true
		}
	}
	if !geminiReady {
		registry.Register("gemini", NewSynthetic("gemini"))
		registry.Register(geminiModel, NewSynthetic(geminiModel))
	}

	qwenModel := opts.QwenModel
	if qwenModel == "" {
		qwenModel = "qwen-image-plus"
	}
	qwenReady := false
	if opts.DashScopeAPIKey != "" {
		qwen, err := NewQwen(QwenOptions{
			APIKey:  opts.DashScopeAPIKey,
			BaseURL: opts.DashScopeBaseURL,
			Model:   qwenModel,
			Logger:  opts.Logger,
		})
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Warn().Err(err).Msg("backend: qwen invoker unavailable, falling back to synthetic")
			}
		} else {
			registry.Register("qwen", qwen)
			registry.Register(qwenModel, qwen)
			qwenReady = true
		}
	}
	if !qwenReady {
		registry.Register("qwen", NewSynthetic("qwen"))
		registry.Register(qwenModel, NewSynthetic(qwenModel))
	}

	registry.Register("synthetic", NewSynthetic("synthetic"))
	registry.SetDefault(geminiModel)
	return registry
}
