package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// Timing is the smoothed duration of one stage under one run mode.
type Timing struct {
	Count      int64     `json:"count"`
	AvgSeconds float64   `json:"avg_seconds"`
	LastSeen   time.Time `json:"last_seen"`
}

// timingFile is the on-disk layout: mode -> stage -> timing.
type timingFile struct {
	Version   int                           `json:"version"`
	UpdatedAt time.Time                     `json:"updated_at"`
	Modes     map[string]map[string]*Timing `json:"modes"`

	// Written by version 1, which had no notion of mode.
	LegacyStages map[string]*legacyStage `json:"stage_stats,omitempty"`
}

type legacyStage struct {
	Count      int64   `json:"count"`
	AvgSeconds float64 `json:"avg_seconds"`
}

const (
	timingVersion  = 2
	timingFileName = "stage_durations.json"

	// version 1 files are adopted as full-mode timings
	legacyMode = "full"
)

// Storage keeps stage timings per run mode and flushes them to disk
// periodically and on Stop.
type Storage struct {
	path          string
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.RWMutex
	modes  map[string]map[string]*Timing
	dirty  bool
	cancel context.CancelFunc
	done   chan struct{}
}

func New(dataDir string, flushInterval time.Duration, logger *slog.Logger) *Storage {
	return &Storage{
		path:          filepath.Join(dataDir, timingFileName),
		flushInterval: flushInterval,
		logger:        logger,
		modes:         make(map[string]map[string]*Timing),
	}
}

// Load replaces the in-memory timings with the file contents. A missing,
// unreadable or newer-versioned file leaves the store empty.
func (s *Storage) Load() error {
	var f timingFile
	err := readJSON(s.path, &f)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes = make(map[string]map[string]*Timing)
	s.dirty = false

	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("no stage timing file, starting fresh", "path", s.path)
		return nil
	case err != nil:
		s.logger.Warn("failed to decode stage timing file, starting fresh", "path", s.path, "error", err)
		return nil
	case f.Version > timingVersion:
		s.logger.Warn("stage timing file version is newer than supported, starting fresh",
			"file_version", f.Version,
			"supported_version", timingVersion,
		)
		return nil
	}

	for mode, stages := range f.Modes {
		for stage, t := range stages {
			if t != nil && t.Count > 0 {
				s.setLocked(mode, stage, *t)
			}
		}
	}
	if f.Version < 2 {
		for stage, l := range f.LegacyStages {
			if l != nil && l.Count > 0 {
				s.setLocked(legacyMode, stage, Timing{Count: l.Count, AvgSeconds: l.AvgSeconds})
			}
		}
		s.dirty = len(f.LegacyStages) > 0
	}

	s.logger.Debug("loaded stage timings", "path", s.path, "modes", len(s.modes))
	return nil
}

func (s *Storage) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := timingFile{
		Version:   timingVersion,
		UpdatedAt: time.Now(),
		Modes:     s.modes,
	}
	if err := writeJSONAtomic(s.path, f); err != nil {
		return err
	}
	s.dirty = false
	s.logger.Debug("saved stage timings", "path", s.path)
	return nil
}

// Start flushes dirty timings every flush interval until Stop or ctx ends.
func (s *Storage) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.flushLoop(ctx)
}

// Stop ends the flush loop and writes the final state.
func (s *Storage) Stop() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	return s.Save()
}

func (s *Storage) flushLoop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Dirty() {
				continue
			}
			if err := s.Save(); err != nil {
				s.logger.Error("failed to save stage timings", "error", err)
			}
		}
	}
}

// Record stores the current smoothed timing of stage under mode.
func (s *Storage) Record(mode, stage string, count int64, avgSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setLocked(mode, stage, Timing{Count: count, AvgSeconds: avgSeconds, LastSeen: time.Now()})
	s.dirty = true
}

func (s *Storage) setLocked(mode, stage string, t Timing) {
	stages, ok := s.modes[mode]
	if !ok {
		stages = make(map[string]*Timing)
		s.modes[mode] = stages
	}
	stages[stage] = &t
}

// Timings returns a copy of the timings learned for mode.
func (s *Storage) Timings(mode string) map[string]Timing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Timing, len(s.modes[mode]))
	for stage, t := range s.modes[mode] {
		out[stage] = *t
	}
	return out
}

// Modes lists the modes that have at least one timing.
func (s *Storage) Modes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.modes))
	for m := range s.modes {
		out = append(out, m)
	}
	return out
}

func (s *Storage) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}
