package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const postmarkEndpoint = "https://api.postmarkapp.com/email"

type PostmarkSender struct {
	serverToken   string
	from          string
	messageStream string
	endpoint      string
	httpClient    *http.Client
}

type PostmarkOption func(*PostmarkSender)

func WithHTTPClient(c *http.Client) PostmarkOption {
	return func(s *PostmarkSender) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func WithMessageStream(stream string) PostmarkOption {
	return func(s *PostmarkSender) {
		s.messageStream = stream
	}
}

func WithEndpoint(endpoint string) PostmarkOption {
	return func(s *PostmarkSender) {
		if endpoint != "" {
			s.endpoint = endpoint
		}
	}
}

func NewPostmarkSender(serverToken, from string, opts ...PostmarkOption) *PostmarkSender {
	s := &PostmarkSender{
		serverToken: serverToken,
		from:        from,
		endpoint:    postmarkEndpoint,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured returns true if the server token is set.
func (s *PostmarkSender) Configured() bool {
	return s.serverToken != ""
}

type postmarkEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HtmlBody      string `json:"HtmlBody,omitempty"`
	TextBody      string `json:"TextBody"`
	Tag           string `json:"Tag,omitempty"`
	MessageStream string `json:"MessageStream,omitempty"`
}

type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return fmt.Errorf("postmark sender not configured: missing server token")
	}
	if err := validate(msg); err != nil {
		return err
	}
	body, err := json.Marshal(postmarkEmail{
		From:          s.from,
		To:            msg.To,
		Subject:       msg.Subject,
		HtmlBody:      msg.HTML,
		TextBody:      msg.Text,
		Tag:           msg.Tag,
		MessageStream: s.messageStream,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.serverToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr postmarkError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("postmark API error: status %d code %d: %s", resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}
	return nil
}
