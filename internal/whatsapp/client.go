// Package whatsapp talks to the WhatsApp Cloud (Graph) API and decodes its
// webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrStatus is wrapped by every error caused by a non-2xx Graph API response.
var ErrStatus = errors.New("whatsapp: unexpected status")

// MaxMediaBytes caps voice-note downloads (the speech-to-text upload limit).
const MaxMediaBytes = 25 << 20

type Client struct {
	baseURL       string
	token         string
	phoneNumberID string
	http          *http.Client
}

func NewClient(baseURL, token, phoneNumberID string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		token:         token,
		phoneNumberID: phoneNumberID,
		http:          httpClient,
	}
}

type mediaResponse struct {
	URL string `json:"url"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// ResolveMediaURL exchanges a media id for its short-lived download URL.
func (c *Client) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	raw, err := c.do(ctx, http.MethodGet, c.baseURL+"/"+mediaID, nil, 1<<20)
	if err != nil {
		return "", fmt.Errorf("resolve media %s: %w", mediaID, err)
	}
	var m mediaResponse
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("resolve media %s: decode: %w", mediaID, err)
	}
	if m.URL == "" {
		return "", fmt.Errorf("resolve media %s: response has no url", mediaID)
	}
	return m.URL, nil
}

// Download fetches the media bytes. The URL requires the same bearer token.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := c.do(ctx, http.MethodGet, url, nil, MaxMediaBytes+1)
	if err != nil {
		return nil, fmt.Errorf("download media: %w", err)
	}
	if len(data) > MaxMediaBytes {
		return nil, fmt.Errorf("download media: larger than %d bytes", MaxMediaBytes)
	}
	return data, nil
}

// SendText sends a plain text message to a WhatsApp user.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	url := c.baseURL + "/" + c.phoneNumberID + "/messages"
	if _, err := c.do(ctx, http.MethodPost, url, payload, 1<<20); err != nil {
		return fmt.Errorf("send reply to %s: %w", to, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, limit int64) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, snippet)
	}
	return data, nil
}
