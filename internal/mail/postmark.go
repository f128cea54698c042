package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PostmarkSender sends through a Postmark-compatible HTTP API.
type PostmarkSender struct {
	APIURL        string
	ServerToken   string
	From          string
	MessageStream string
	HTTPClient    *http.Client
}

// NewPostmarkSender returns a sender using the given endpoint and server token. The HTTP
// client carries no timeout of its own; callers bound each Send with ctx.
func NewPostmarkSender(apiURL, serverToken, from, stream string) *PostmarkSender {
	return &PostmarkSender{
		APIURL:        apiURL,
		ServerToken:   serverToken,
		From:          from,
		MessageStream: stream,
		HTTPClient:    &http.Client{},
	}
}

type postmarkEmail struct {
	From          string
	To            string
	Subject       string
	TextBody      string
	MessageStream string
}

type postmarkResponse struct {
	ErrorCode int
	Message   string
	MessageID string
}

// Send posts msg to the API. The link in the body is never logged.
func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if s.ServerToken == "" {
		return fmt.Errorf("mail: server token not configured")
	}
	raw, err := json.Marshal(postmarkEmail{
		From:          s.From,
		To:            msg.To,
		Subject:       msg.Subject,
		TextBody:      msg.Body,
		MessageStream: s.MessageStream,
	})
	if err != nil {
		return fmt.Errorf("mail: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("mail: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", s.ServerToken)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("mail: send: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var res postmarkResponse
	if err := json.Unmarshal(body, &res); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("mail: request failed status=%d", resp.StatusCode)
		}
		return fmt.Errorf("mail: decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || res.ErrorCode != 0 {
		return fmt.Errorf("mail: request failed status=%d code=%d message=%s", resp.StatusCode, res.ErrorCode, res.Message)
	}
	return nil
}
