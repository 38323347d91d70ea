package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"quiz-session-engine/internal/domain"
)

// CSRFHeader carries the anti-forgery token issued by the hosting page.
const CSRFHeader = "X-CSRFToken"

const maxResponseBytes = 1 << 20

// Client posts final answers to a quiz-scoped results endpoint. It makes a
// single attempt; retrying is left to the user.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	cookies  []*http.Cookie
}

// NewClient builds a gateway for endpoint. A nil httpClient gets a default
// with a 15s timeout.
func NewClient(httpClient *http.Client, endpoint, csrfToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{http: httpClient, endpoint: endpoint, token: csrfToken}
}

// WithCookies returns a copy of c that sends cookies on every request. The
// http.Client can then be shared between users without a jar.
func (c *Client) WithCookies(cookies []*http.Cookie) *Client {
	cp := *c
	cp.cookies = append([]*http.Cookie(nil), cookies...)
	return &cp
}

// Endpoint is the results location; on success the UI navigates there.
func (c *Client) Endpoint() string { return c.endpoint }

type wireSubmission struct {
	Answers        map[string]string `json:"user_answers"`
	Flagged        map[string]bool   `json:"flagged_questions"`
	TotalQuestions int               `json:"total_questions"`
}

func (c *Client) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionAck, error) {
	body, err := json.Marshal(toWire(sub))
	if err != nil {
		return domain.SubmissionAck{}, fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CSRFHeader, c.token)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrNetwork, StatusCode: resp.StatusCode, Err: err}
	}

	var ack domain.SubmissionAck
	decodeErr := json.Unmarshal(raw, &ack)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ack.Message
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrServer, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrServer, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if ack.Status != "ok" {
		msg := ack.Message
		if msg == "" {
			msg = "submission failed"
		}
		return domain.SubmissionAck{}, &domain.SubmissionError{Kind: domain.ErrServer, StatusCode: resp.StatusCode, Message: msg}
	}
	return ack, nil
}

func toWire(sub domain.Submission) wireSubmission {
	w := wireSubmission{
		Answers:        make(map[string]string, len(sub.Answers)),
		Flagged:        make(map[string]bool, len(sub.Flagged)),
		TotalQuestions: sub.TotalQuestions,
	}
	for i, v := range sub.Answers {
		w.Answers[strconv.Itoa(i)] = v
	}
	for i, flagged := range sub.Flagged {
		if flagged {
			w.Flagged[strconv.Itoa(i)] = true
		}
	}
	return w
}
