package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoAudio means the payload carries no audio message to process.
	ErrNoAudio = errors.New("no audio message in payload")
	// ErrMalformedPayload means the body is not a webhook JSON document.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Webhook payload as delivered by the Cloud API. Only the fields the intake
// pipeline reads are modelled.
type (
	WebhookPayload struct {
		Object string  `json:"object"`
		Entry  []Entry `json:"entry"`
	}

	Entry struct {
		ID      string   `json:"id"`
		Changes []Change `json:"changes"`
	}

	Change struct {
		Field string `json:"field"`
		Value Value  `json:"value"`
	}

	Value struct {
		MessagingProduct string    `json:"messaging_product"`
		Messages         []Message `json:"messages"`
	}

	Message struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Audio     *Media `json:"audio"`
	}

	Media struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Voice    bool   `json:"voice"`
	}
)

// AudioMessage is the part of an inbound voice note the pipeline needs.
type AudioMessage struct {
	MessageID string
	MediaID   string
	From      string
	MimeType  string
}

// ParseAudio reads entry[0].changes[0].value.messages[0] and returns it if it
// is an audio message with a media id. Any missing level yields ErrNoAudio.
func ParseAudio(raw []byte) (AudioMessage, error) {
	var p WebhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return AudioMessage{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 || len(p.Entry[0].Changes[0].Value.Messages) == 0 {
		return AudioMessage{}, ErrNoAudio
	}
	msg := p.Entry[0].Changes[0].Value.Messages[0]
	if msg.Type != "audio" || msg.Audio == nil || msg.Audio.ID == "" {
		return AudioMessage{}, ErrNoAudio
	}
	return AudioMessage{
		MessageID: msg.ID,
		MediaID:   msg.Audio.ID,
		From:      msg.From,
		MimeType:  msg.Audio.MimeType,
	}, nil
}
