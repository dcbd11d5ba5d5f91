package ledger

import (
	"errors"
	"strings"
)

// ErrNoLedger is returned when a sender has no ledger and no default is configured.
var ErrNoLedger = errors.New("no ledger configured for sender")

// Directory maps a sender phone number to the spreadsheet id of their ledger.
type Directory struct {
	entries  map[string]string
	fallback string
}

// NewDirectory builds a directory from sender=ledger entries and a default.
func NewDirectory(entries map[string]string, fallback string) *Directory {
	d := &Directory{entries: make(map[string]string, len(entries)), fallback: strings.TrimSpace(fallback)}
	for sender, id := range entries {
		d.entries[normalizeSender(sender)] = id
	}
	return d
}

// Resolve returns the ledger id for sender.
func (d *Directory) Resolve(sender string) (string, error) {
	if id, ok := d.entries[normalizeSender(sender)]; ok {
		return id, nil
	}
	if d.fallback != "" {
		return d.fallback, nil
	}
	return "", ErrNoLedger
}

// normalizeSender drops a leading "+" so "+1555" and "1555" (as WhatsApp
// reports senders) resolve alike.
func normalizeSender(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "+")
}
