package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cvstudio/cvstudio-backend/pkg/config"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
)

// RemoteExtractor sends binary formats the service cannot decode locally
// (PDF, legacy .xls) to the extraction service. The service runs
// asynchronous tasks: submit the bytes, poll until done, read the text.
type RemoteExtractor struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	timeout      time.Duration
	httpClient   *http.Client
	fileTypes    map[string]string
}

// NewRemoteExtractor creates an extraction service client
func NewRemoteExtractor(cfg *config.ExtractorConfig) *RemoteExtractor {
	return &RemoteExtractor{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		fileTypes: map[string]string{
			"pdf": "application/pdf",
			"xls": "application/vnd.ms-excel",
		},
	}
}

func (e *RemoteExtractor) Name() string {
	return "remote"
}

func (e *RemoteExtractor) CanExtract(fileType string) bool {
	_, ok := e.fileTypes[fileType]
	return ok
}

type extractTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
		State  string `json:"state"` // pending, running, done, failed
		Text   string `json:"text,omitempty"`
		Error  string `json:"err_msg,omitempty"`
	} `json:"data"`
}

func (e *RemoteExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	taskID, err := e.submit(ctx, data)
	if err != nil {
		return "", errors.Extraction(err, "extraction service rejected the file")
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", errors.Extraction(ctx.Err(), "extraction service timed out")
		case <-ticker.C:
			task, err := e.poll(ctx, taskID)
			if err != nil {
				return "", errors.Extraction(err, "extraction service poll failed")
			}

			switch task.Data.State {
			case "done":
				if strings.TrimSpace(task.Data.Text) == "" {
					return "", errors.Extraction(nil, "extraction service returned no text")
				}
				return task.Data.Text, nil
			case "failed":
				return "", errors.Extraction(nil, "extraction failed: "+task.Data.Error)
			}
			// pending / running: keep polling
		}
	}
}

func (e *RemoteExtractor) submit(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/extract/tasks", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	var resp extractTaskResponse
	if err := e.do(req, &resp); err != nil {
		return "", err
	}
	if resp.Data.TaskID == "" {
		return "", fmt.Errorf("extraction service returned no task id: %s", resp.Message)
	}
	return resp.Data.TaskID, nil
}

func (e *RemoteExtractor) poll(ctx context.Context, taskID string) (*extractTaskResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/extract/tasks/"+taskID, nil)
	if err != nil {
		return nil, err
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	var resp extractTaskResponse
	if err := e.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (e *RemoteExtractor) do(req *http.Request, out *extractTaskResponse) error {
	res, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("extraction service returned %d: %s", res.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
