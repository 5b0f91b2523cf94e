package strategy

import (
	"context"
	"reflect"
	"testing"

	"genengine/internal/domain"
)

func TestDeterministicIsReproducible(t *testing.T) {
	s := NewDeterministic()
	reqCtx := richContext()
	reqCtx.Seed = 3

	first, err := s.Execute(context.Background(), reqCtx)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	second, err := s.Execute(context.Background(), reqCtx)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical requests produced different content:\n%+v\n%+v", first, second)
	}
}

func TestDeterministicSeedVariesCaption(t *testing.T) {
	s := NewDeterministic()
	a := richContext()
	a.Seed = 0
	b := richContext()
	b.Seed = 1

	first, _ := s.Execute(context.Background(), a)
	second, _ := s.Execute(context.Background(), b)

	if first.Caption == second.Caption {
		t.Fatalf("seeds 0 and 1 produced the same caption %q", first.Caption)
	}
}

func TestDeterministicSurvivesEmptyContext(t *testing.T) {
	s := NewDeterministic()

	content, err := s.Execute(context.Background(), domain.RequestContext{})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if content.Headline != "Your Brand Highlights" {
		t.Fatalf("Headline = %q, want %q", content.Headline, "Your Brand Highlights")
	}
	if content.Caption == "" || len(content.PromptParts) == 0 {
		t.Fatalf("content incomplete: %+v", content)
	}
}

func TestDeterministicNegativeSeed(t *testing.T) {
	s := NewDeterministic()
	reqCtx := richContext()
	reqCtx.Seed = -7

	content, err := s.Execute(context.Background(), reqCtx)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if content.Caption == "" {
		t.Fatal("negative seed produced empty caption")
	}
}
