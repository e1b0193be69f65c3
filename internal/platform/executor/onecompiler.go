// Package executor runs submitted source code on the remote OneCompiler API.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
)

type Client struct {
	url     string
	apiKey  string
	apiHost string
	http    *http.Client
}

func NewClient(url, apiKey, apiHost string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		apiKey:  apiKey,
		apiHost: apiHost,
		http:    &http.Client{Timeout: timeout},
	}
}

type runFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type runRequest struct {
	Language string    `json:"language"`
	Stdin    string    `json:"stdin"`
	Files    []runFile `json:"files"`
}

type runResponse struct {
	ExecutionTime float64 `json:"executionTime"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	Exception     *string `json:"exception"`
}

// Execute runs source once with stdin. Transport problems and non-2xx
// answers are reported as ErrServiceUnavailable. A program that raised is
// not an error here; the exception is returned in the result.
func (c *Client) Execute(ctx context.Context, source, stdin string, language model.Language) (*model.ExecutionResult, error) {
	fileName, ok := language.EntryFileName()
	if !ok {
		return nil, fmt.Errorf("unsupported language %q: %w", language, common.ErrValidation)
	}

	payload, err := json.Marshal(runRequest{
		Language: string(language),
		Stdin:    stdin,
		Files:    []runFile{{Name: fileName, Content: source}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal execution request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build execution request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call execution service: %v: %w", err, common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read execution response: %v: %w", err, common.ErrServiceUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("execution service returned status %d: %w", resp.StatusCode, common.ErrServiceUnavailable)
	}

	var out runResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode execution response: %v: %w", err, common.ErrServiceUnavailable)
	}

	result := &model.ExecutionResult{
		ExecutionTime: out.ExecutionTime,
		Exception:     out.Exception,
	}
	if out.Stdout != nil {
		result.Stdout = *out.Stdout
	}
	if out.Stderr != nil {
		result.Stderr = *out.Stderr
	}
	return result, nil
}
