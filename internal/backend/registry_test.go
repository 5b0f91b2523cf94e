package backend

import (
	"context"
	"testing"

	"genengine/internal/domain"
)

func TestBuildRegistryKeylessServesSynthetic(t *testing.T) {
	registry := BuildRegistry(RegistryOptions{})

	inv, err := registry.Resolve("")
	if err != nil {
		t.Fatalf("Resolve default: %v", err)
	}
	if _, ok := inv.(*Synthetic); !ok {
		t.Fatalf("keyless default invoker = %T, want *Synthetic", inv)
	}

	artifact, err := inv.Invoke(context.Background(), domain.GenerationRequest{
		ID:       "probe",
		Parts:    []domain.PromptPart{{Kind: domain.PartText, Text: "probe"}},
		Modality: domain.ModalityImage,
	}, AttemptConfig{})
	if err != nil {
		t.Fatalf("synthetic invoke: %v", err)
	}
	if len(artifact.Data) == 0 {
		t.Fatal("synthetic invoke produced no bytes")
	}
}

func TestBuildRegistryRegistersRealInvokersWithKeys(t *testing.T) {
	registry := BuildRegistry(RegistryOptions{
		GeminiAPIKey:    "gk",
		DashScopeAPIKey: "dk",
	})

	inv, err := registry.Resolve("gemini")
	if err != nil {
		t.Fatalf("Resolve gemini: %v", err)
	}
	if _, ok := inv.(*Gemini); !ok {
		t.Fatalf("gemini invoker = %T, want *Gemini", inv)
	}

	inv, err = registry.Resolve("qwen-image-plus")
	if err != nil {
		t.Fatalf("Resolve qwen-image-plus: %v", err)
	}
	if _, ok := inv.(*Qwen); !ok {
		t.Fatalf("qwen invoker = %T, want *Qwen", inv)
	}
}

func TestBuildRegistryAlwaysListsSynthetic(t *testing.T) {
	registry := BuildRegistry(RegistryOptions{GeminiModel: "gemini-custom"})

	seen := map[string]bool{}
	for _, model := range registry.Models() {
		seen[model] = true
	}
	for _, want := range []string{"gemini", "gemini-custom", "qwen", "qwen-image-plus", "synthetic"} {
		if !seen[want] {
			t.Fatalf("Models() missing %q: %v", want, registry.Models())
		}
	}

	if _, err := registry.Resolve("unlisted-model"); err == nil {
		t.Fatal("Resolve should reject models outside the allow-list")
	}
}
