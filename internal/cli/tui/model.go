package tui

import (
	"time"

	"github.com/haskel/variantlab/internal/monitor"
	"github.com/haskel/variantlab/internal/server"
)

const minRefreshInterval = 200 * time.Millisecond

type Config struct {
	ServerURL       string
	RefreshInterval time.Duration
	User            string
	Password        string
}

// Model holds the latest poll of /status and /resources. A failed poll keeps
// the previous values on screen and records the error.
type Model struct {
	config Config

	status    *server.StatusResponse
	resources *monitor.SystemState

	width       int
	height      int
	loading     bool
	err         error
	lastUpdated time.Time
}

func NewModel(cfg Config) Model {
	cfg.RefreshInterval = max(cfg.RefreshInterval, minRefreshInterval)
	return Model{
		config:  cfg,
		loading: true,
	}
}
