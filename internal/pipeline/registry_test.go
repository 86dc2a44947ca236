package pipeline

import (
	"testing"

	"github.com/google/uuid"

	"storythingy/storyboard-api/internal/segmenter"
)

func newBareRegistry() *Registry {
	return NewRegistry(func() *Pipeline {
		return New(Config{Segmenter: segmenter.New(&fixedChunks{}, nil)})
	})
}

func TestRegistryLifecycle(t *testing.T) {
	r := newBareRegistry()

	p := r.Create()
	got, ok := r.Get(p.ID)
	if !ok || got != p {
		t.Fatalf("Get(%v) = %v, %v", p.ID, got, ok)
	}

	r.Remove(p.ID)
	if _, ok := r.Get(p.ID); ok {
		t.Error("pipeline still registered after Remove")
	}
}

func TestRegistryUnknownID(t *testing.T) {
	r := newBareRegistry()
	if _, ok := r.Get(uuid.New()); ok {
		t.Error("Get on an unknown id reported a pipeline")
	}
}
