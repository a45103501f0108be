package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haskel/variantlab/internal/experiment"
)

func TestModelStore_PersistLoad(t *testing.T) {
	ms := NewModelStore(t.TempDir(), testLogger())

	handle := experiment.ModelHandle{
		Variant:    experiment.VariantB,
		URI:        "/models/attention_unet.pt",
		TrainedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Attributes: map[string]string{"epochs": "40"},
	}

	if err := ms.Persist(handle, "exp-B"); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	loaded, err := ms.Load("exp-B")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Name != "exp-B" {
		t.Errorf("expected name exp-B, got %s", loaded.Name)
	}
	if loaded.URI != handle.URI || loaded.Variant != experiment.VariantB {
		t.Errorf("unexpected handle: %+v", loaded)
	}
	if !loaded.TrainedAt.Equal(handle.TrainedAt) {
		t.Errorf("expected trained_at %v, got %v", handle.TrainedAt, loaded.TrainedAt)
	}
	if loaded.Attributes["epochs"] != "40" {
		t.Errorf("attributes not persisted: %v", loaded.Attributes)
	}
}

func TestModelStore_LoadMissing(t *testing.T) {
	ms := NewModelStore(t.TempDir(), testLogger())

	_, err := ms.Load("exp-A")
	if !errors.Is(err, experiment.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestModelStore_OverwriteAndList(t *testing.T) {
	ms := NewModelStore(t.TempDir(), testLogger())

	_ = ms.Persist(experiment.ModelHandle{Variant: experiment.VariantA, URI: "old"}, "exp-A")
	_ = ms.Persist(experiment.ModelHandle{Variant: experiment.VariantB, URI: "b"}, "exp-B")
	_ = ms.Persist(experiment.ModelHandle{Variant: experiment.VariantA, URI: "new"}, "exp-A")

	h, err := ms.Load("exp-A")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if h.URI != "new" {
		t.Errorf("expected overwritten handle, got %s", h.URI)
	}

	names, err := ms.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 2 || names[0] != "exp-A" || names[1] != "exp-B" {
		t.Errorf("unexpected names: %v", names)
	}

	if err := ms.Delete("exp-A"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := ms.Load("exp-A"); !errors.Is(err, experiment.ErrModelNotFound) {
		t.Errorf("expected deleted model to be missing, got %v", err)
	}
}

func TestModelStore_EmptyName(t *testing.T) {
	ms := NewModelStore(t.TempDir(), testLogger())
	if err := ms.Persist(experiment.ModelHandle{}, ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestModelStore_CorruptRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, modelRegistryFile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	ms := NewModelStore(dir, testLogger())
	if _, err := ms.Load("exp-A"); err == nil || errors.Is(err, experiment.ErrModelNotFound) {
		t.Errorf("corrupt registry should be a read error, got %v", err)
	}
}
