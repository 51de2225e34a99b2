// Package api talks to the recording server that collects finished
// session exports.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UploadMetadata describes an exported session file.
type UploadMetadata struct {
	SessionID string
	GameCode  string
	Title     string
	Patch     string
	Duration  time.Duration
}

// StatusError is a non-2xx reply from the recording server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

const (
	uploadPath   = "/api/v1/recordings/add"
	maxAttempts  = 3
	maxErrorBody = 512
)

// Client handles communication with the recording server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retryDelay time.Duration
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
	}
}

// Healthcheck checks if the recording server is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// Upload sends an exported session file to the recording server. Server
// errors and dropped connections are retried; rejections are not.
func (c *Client) Upload(ctx context.Context, filePath string, meta UploadMetadata) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	body, contentType, err := c.uploadForm(filepath.Base(filePath), content, meta)
	if err != nil {
		return err
	}

	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err = c.post(ctx, uploadPath, contentType, body)
		var se *StatusError
		if err == nil || attempt == maxAttempts || (errors.As(err, &se) && !se.Temporary()) {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	if err != nil {
		return fmt.Errorf("uploading %s: %w", filepath.Base(filePath), err)
	}
	return nil
}

// uploadForm encodes the metadata and file as multipart form data. The
// checksum lets the server discard a retried upload it already stored.
func (c *Client) uploadForm(name string, content []byte, meta UploadMetadata) ([]byte, string, error) {
	sum := sha256.Sum256(content)
	encoding := "identity"
	if strings.HasSuffix(name, ".gz") {
		encoding = "gzip"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"secret", c.apiKey},
		{"filename", name},
		{"sessionId", meta.SessionID},
		{"gameCode", meta.GameCode},
		{"title", meta.Title},
		{"patch", meta.Patch},
		{"duration", fmt.Sprintf("%.3f", meta.Duration.Seconds())},
		{"sha256", hex.EncodeToString(sum[:])},
		{"encoding", encoding},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
