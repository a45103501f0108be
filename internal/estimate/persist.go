package estimate

import (
	"time"

	"github.com/haskel/variantlab/internal/experiment"
	"github.com/haskel/variantlab/internal/storage"
)

// Bind seeds e with the timings learned for mode and records every later
// observation back under the same mode.
func Bind(e *Estimator, s *storage.Storage, mode experiment.Mode) {
	learned := s.Timings(string(mode))

	stats := make([]StageStats, 0, len(learned))
	for name, t := range learned {
		stats = append(stats, StageStats{
			Stage:   experiment.Stage(name),
			Count:   t.Count,
			Average: time.Duration(t.AvgSeconds * float64(time.Second)),
		})
	}
	e.LoadStats(stats)

	e.SetObserver(func(st StageStats) {
		s.Record(string(mode), string(st.Stage), st.Count, st.Average.Seconds())
	})
}
