// Package groq is a small client for the Groq OpenAI-compatible API:
// audio transcription and JSON-mode chat completions.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

var (
	// ErrStatus is wrapped by every error caused by a non-2xx response.
	ErrStatus = errors.New("groq: unexpected status")

	ErrResponseTooLarge = errors.New("groq: response body too large")
)

const (
	maxErrorBody    = 512
	maxResponseBody = 1 << 20
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
	}
}

type Role string

const (
	SystemRole Role = "system"
	UserRole   Role = "user"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text *string `json:"text"`
}

// Transcribe uploads audio as audio.ogg and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, model string, audio []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	_ = mw.WriteField("model", model)
	_ = mw.WriteField("response_format", "json")
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart body: %w", err)
	}

	raw, err := c.post(ctx, "/audio/transcriptions", mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	var result transcriptionResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}
	if result.Text == nil {
		return "", errors.New("transcription response has no text field")
	}
	return *result.Text, nil
}

// ChatJSON runs a zero-temperature completion in JSON mode and returns the
// content of the first choice.
func (c *Client) ChatJSON(ctx context.Context, model string, messages []Message) (string, error) {
	reqBody := chatRequest{
		Model:          model,
		Temperature:    0,
		Messages:       messages,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	raw, err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to parse groq response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from groq")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if len(raw) > maxResponseBody {
		return nil, fmt.Errorf("%w: %s", ErrResponseTooLarge, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(raw)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w %d from %s: %s", ErrStatus, resp.StatusCode, path, snippet)
	}
	return raw, nil
}
