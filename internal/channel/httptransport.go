package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const transportTimeout = 10 * time.Second

// HTTPTransport talks to the WhatsApp bridge over its JSON API. The bridge
// owns the phone connection; we only hand it payloads to deliver.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(baseURL, token string) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: transportTimeout,
		},
	}
}

func (t *HTTPTransport) SendText(ctx context.Context, to, text string) error {
	return t.post(ctx, "/send/text", map[string]any{
		"to":   to,
		"text": text,
	})
}

func (t *HTTPTransport) SendDocument(ctx context.Context, to, url, fileName, mimeType, caption string) error {
	return t.post(ctx, "/send/document", map[string]any{
		"to":       to,
		"url":      url,
		"fileName": fileName,
		"mimeType": mimeType,
		"caption":  caption,
	})
}

func (t *HTTPTransport) SendImage(ctx context.Context, to, url, caption string) error {
	return t.post(ctx, "/send/image", map[string]any{
		"to":      to,
		"url":     url,
		"caption": caption,
	})
}

func (t *HTTPTransport) SendVideo(ctx context.Context, to, url, caption string) error {
	return t.post(ctx, "/send/video", map[string]any{
		"to":      to,
		"url":     url,
		"caption": caption,
	})
}

func (t *HTTPTransport) SendTyping(ctx context.Context, to string, active bool) error {
	return t.post(ctx, "/send/typing", map[string]any{
		"to":     to,
		"active": active,
	})
}

func (t *HTTPTransport) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("transport request error")
		return fmt.Errorf("transport request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("transport request rejected")
		return fmt.Errorf("transport returned status %d", resp.StatusCode)
	}

	log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("transport request delivered")
	return nil
}
