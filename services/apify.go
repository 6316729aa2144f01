package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pricescrub/pricescrub-api/config"
	"github.com/pricescrub/pricescrub-api/utils"
)

// ============================================================================
// SCRAPING JOB PROVIDER CLIENT (Apify-style)
// Submit a saved-task run, wait synchronously for a terminal status, then
// fetch the run's default dataset. One round trip per source per request.
// ============================================================================

type ApifyService struct {
	Token    string
	BaseURL  string
	WaitSecs int
	Client   *http.Client
}

func NewApifyService(cfg *config.Config) *ApifyService {
	return &ApifyService{
		Token:    strings.TrimSpace(cfg.ApifyToken),
		BaseURL:  strings.TrimRight(cfg.ApifyBaseURL, "/"),
		WaitSecs: cfg.ApifyWaitSecs,
		// The provider holds the connection open while the job runs, so the
		// client timeout must sit above the waitForFinish window.
		Client: &http.Client{Timeout: time.Duration(cfg.ApifyWaitSecs+30) * time.Second},
	}
}

type apifyRun struct {
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
	Output           *struct {
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"output"`
}

// RunTaskSync submits one task run with the given input, waits for it to
// finish, and returns the resulting dataset items (capped at limit).
func (s *ApifyService) RunTaskSync(ctx context.Context, taskID string, input map[string]any, limit int) ([]map[string]any, error) {
	if s.Token == "" || taskID == "" {
		return nil, fmt.Errorf("scraping provider not configured")
	}

	runURL := fmt.Sprintf("%s/v2/actor-tasks/%s/runs?token=%s&waitForFinish=%d",
		s.BaseURL, taskID, s.Token, s.WaitSecs)

	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task input: %w", err)
	}

	log.Printf("[Apify] Submitting task run: %s", utils.MaskURL(runURL))

	req, err := http.NewRequestWithContext(ctx, "POST", runURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task run request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("task run submission failed (%d): %s",
			resp.StatusCode, utils.MaskSecrets(utils.Snippet(string(b), 300)))
	}

	var runResp struct {
		Data apifyRun `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		return nil, fmt.Errorf("failed to parse run response: %w", err)
	}

	if runResp.Data.Status != "SUCCEEDED" {
		return nil, fmt.Errorf("task run finished with status %q", runResp.Data.Status)
	}

	datasetID := runResp.Data.DefaultDatasetID
	if datasetID == "" && runResp.Data.Output != nil {
		datasetID = runResp.Data.Output.DefaultDatasetID
	}
	if datasetID == "" {
		return nil, fmt.Errorf("task run returned no dataset id")
	}

	return s.fetchDataset(ctx, datasetID, limit)
}

func (s *ApifyService) fetchDataset(ctx context.Context, datasetID string, limit int) ([]map[string]any, error) {
	itemsURL := fmt.Sprintf("%s/v2/datasets/%s/items?clean=true&token=%s&limit=%d",
		s.BaseURL, datasetID, s.Token, limit)

	req, err := http.NewRequestWithContext(ctx, "GET", itemsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("dataset fetch failed (%d): %s",
			resp.StatusCode, utils.MaskSecrets(utils.Snippet(string(b), 300)))
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset items: %w", err)
	}

	return items, nil
}
