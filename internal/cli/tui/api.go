package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haskel/variantlab/internal/monitor"
	"github.com/haskel/variantlab/internal/server"
)

// errNotServed marks an optional endpoint the status server does not expose.
var errNotServed = errors.New("endpoint not served")

type statusMsg struct {
	data *server.StatusResponse
	err  error
}

type resourcesMsg struct {
	data *monitor.SystemState
	err  error
}

type tickMsg time.Time

type apiClient struct {
	baseURL  string
	client   *http.Client
	user     string
	password string
}

func newAPIClient(cfg Config) *apiClient {
	return &apiClient{
		baseURL: cfg.ServerURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		user:     cfg.User,
		password: cfg.Password,
	}
}

func (c *apiClient) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotServed
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func fetchStatus(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var status server.StatusResponse
		if err := newAPIClient(cfg).get("/status", &status); err != nil {
			return statusMsg{err: err}
		}
		return statusMsg{data: &status}
	}
}

// fetchResources tolerates servers started without a resource sampler.
func fetchResources(cfg Config) tea.Cmd {
	return func() tea.Msg {
		var state monitor.SystemState
		err := newAPIClient(cfg).get("/resources", &state)
		switch {
		case errors.Is(err, errNotServed):
			return resourcesMsg{}
		case err != nil:
			return resourcesMsg{err: err}
		}
		return resourcesMsg{data: &state}
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
