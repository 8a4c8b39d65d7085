// Package renderer talks to the external render engine. The engine is
// opaque to the orchestrator: it receives the job's engine params and an
// output path, and reports success with an artifact path or failure with
// a diagnostic message.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Spec is the request contract for one render invocation.
type Spec struct {
	JobID      string          `json:"job_id"`
	RenderType string          `json:"render_type"`
	Quality    string          `json:"quality"`
	Params     json.RawMessage `json:"params"`
	OutputPath string          `json:"output_path"`
}

// Result is what the engine reports back.
type Result struct {
	Success      bool   `json:"success"`
	ArtifactPath string `json:"artifact_path"`
	Error        string `json:"error,omitempty"`
}

type Client interface {
	// Render runs the engine to completion and returns the artifact path.
	// A non-2xx response, a transport error and an explicit error payload
	// are all reported the same way: as a failed render.
	Render(ctx context.Context, spec Spec) (string, error)
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		// Render jobs are long-running; the watchdog policy lives on the
		// engine side, this timeout is only a transport backstop.
		client: &http.Client{Timeout: 2 * time.Hour},
	}
}

func (c *HTTPClient) Render(ctx context.Context, spec Spec) (string, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("renderer http %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}

	var result Result
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("renderer response decode failed: %w", err)
	}
	if !result.Success {
		if result.Error == "" {
			result.Error = "renderer reported failure without a message"
		}
		return "", fmt.Errorf("render failed: %s", result.Error)
	}
	if result.ArtifactPath == "" {
		return "", fmt.Errorf("renderer reported success without an artifact path")
	}
	return result.ArtifactPath, nil
}
