package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/haskel/variantlab/internal/experiment"
)

const (
	modelRegistryFile    = "models.json"
	modelRegistryVersion = 1
)

// ModelStore keeps a registry of trained model handles by name. Model
// artifacts themselves stay where the trainer wrote them.
type ModelStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

func NewModelStore(dir string, logger *slog.Logger) *ModelStore {
	return &ModelStore{dir: dir, logger: logger}
}

type modelRegistry struct {
	Version int                               `json:"version"`
	Models  map[string]experiment.ModelHandle `json:"models"`
}

func (ms *ModelStore) path() string {
	return filepath.Join(ms.dir, modelRegistryFile)
}

func (ms *ModelStore) readLocked() (*modelRegistry, error) {
	reg := &modelRegistry{Version: modelRegistryVersion, Models: map[string]experiment.ModelHandle{}}

	if err := readJSON(ms.path(), reg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return reg, nil
		}
		return nil, fmt.Errorf("failed to read model registry: %w", err)
	}
	if reg.Models == nil {
		reg.Models = map[string]experiment.ModelHandle{}
	}
	return reg, nil
}

// Persist records handle under name, replacing any previous entry.
func (ms *ModelStore) Persist(handle experiment.ModelHandle, name string) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	reg, err := ms.readLocked()
	if err != nil {
		return err
	}

	handle.Name = name
	reg.Models[name] = handle

	if err := writeJSONAtomic(ms.path(), reg); err != nil {
		return fmt.Errorf("failed to persist model %s: %w", name, err)
	}

	ms.logger.Debug("persisted model handle", "name", name, "uri", handle.URI)
	return nil
}

// Load returns the handle stored under name or experiment.ErrModelNotFound.
func (ms *ModelStore) Load(name string) (experiment.ModelHandle, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	reg, err := ms.readLocked()
	if err != nil {
		return experiment.ModelHandle{}, err
	}

	h, ok := reg.Models[name]
	if !ok {
		return experiment.ModelHandle{}, fmt.Errorf("%s: %w", name, experiment.ErrModelNotFound)
	}
	return h, nil
}

// List returns the registered model names in sorted order.
func (ms *ModelStore) List() ([]string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	reg, err := ms.readLocked()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(reg.Models))
	for n := range reg.Models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes name from the registry. Missing names are ignored.
func (ms *ModelStore) Delete(name string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	reg, err := ms.readLocked()
	if err != nil {
		return err
	}
	if _, ok := reg.Models[name]; !ok {
		return nil
	}
	delete(reg.Models, name)
	return writeJSONAtomic(ms.path(), reg)
}
