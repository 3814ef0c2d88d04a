// Package gateway implements the outbound WhatsApp client (§6 "Outbound
// gateway"): JSON-over-HTTP sends per media kind, typing-indicator pings,
// and the ordered media-download fallback chain. Phone numbers are
// formatted country-prefixed with an "@s.whatsapp.net" suffix, matching the
// vendor convention original_source/api targets (the Evolution API shape).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/internal/domain"
)

// Client is the outbound WhatsApp gateway. It satisfies humanizer.Gateway.
type Client struct {
	baseURL    string
	apiKey     string
	instance   string
	httpClient *http.Client
}

func New(baseURL, apiKey, instance string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		instance:   instance,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// JID formats phone per §6: country-prefixed digits + "@s.whatsapp.net".
func JID(phone string) string {
	return phone + "@s.whatsapp.net"
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return domain.NewError(domain.ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrTransientNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewError(domain.ErrRateLimited, fmt.Errorf("gateway: %s: status %d", path, resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return domain.NewError(domain.ErrTransientNetwork, fmt.Errorf("gateway: %s: status %d", path, resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return domain.NewError(domain.ErrToolDomain, fmt.Errorf("gateway: %s: status %d", path, resp.StatusCode))
	}
	return nil
}

// SendText sends a plain text chunk (§4.A Execute, §4.D send_text tool).
func (c *Client) SendText(ctx context.Context, phone, text string) error {
	return c.post(ctx, fmt.Sprintf("/message/sendText/%s", c.instance), map[string]any{
		"number":  JID(phone),
		"text":    text,
	})
}

// MediaKind identifies the outbound media payload shape (§4.D send_media).
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaLocation MediaKind = "location"
)

// SendMedia sends an image/audio/document/location per §6's media-kind
// endpoints.
func (c *Client) SendMedia(ctx context.Context, phone string, kind MediaKind, ref, caption string) error {
	return c.post(ctx, fmt.Sprintf("/message/send%s/%s", capitalize(string(kind)), c.instance), map[string]any{
		"number":  JID(phone),
		"media":   ref,
		"caption": caption,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SetTyping signals the typing indicator on/off (§4.A Execute).
func (c *Client) SetTyping(ctx context.Context, phone string, on bool) error {
	return c.post(ctx, fmt.Sprintf("/chat/sendPresence/%s", c.instance), map[string]any{
		"number":   JID(phone),
		"presence": presenceValue(on),
	})
}

func presenceValue(on bool) string {
	if on {
		return "composing"
	}
	return "paused"
}
