package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// FileField is the multipart field the extraction endpoint reads.
	FileField = "slide_file"
	// MaxFileSize mirrors the server-side upload limit.
	MaxFileSize = 10 << 20
)

var (
	ErrFileTooLarge = errors.New("file too large (max 10MB)")
	ErrNoText       = errors.New("no text data received from server")
)

// ExtractionError is an error reported by the extraction endpoint.
type ExtractionError struct {
	StatusCode int
	Message    string
}

func (e *ExtractionError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("extract text: status %d: %s", e.StatusCode, e.Message)
	}
	return "extract text: " + e.Message
}

// Client uploads study material and returns the text the server pulled out of it.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

func NewClient(httpClient *http.Client, endpoint, csrfToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{http: httpClient, endpoint: endpoint, token: csrfToken}
}

type response struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Extract uploads r as filename. Both the {text} and {error} response shapes
// are handled; a non-2xx status is always an error.
func (c *Client) Extract(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(FileField, filename)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if n > MaxFileSize {
		return "", ErrFileTooLarge
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.token != "" {
		req.Header.Set("X-CSRFToken", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ExtractionError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode extraction response: %w", err)
	}
	if out.Error != "" {
		return "", &ExtractionError{StatusCode: resp.StatusCode, Message: out.Error}
	}
	if out.Text == "" {
		return "", ErrNoText
	}
	return out.Text, nil
}
