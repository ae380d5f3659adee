package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

type PitchStatus string

const (
	PitchStatusActive PitchStatus = "active"
)

type Pitch struct {
	ID        string `json:"id"`
	FounderID string `json:"founder_id"`
	Title     string `json:"title"`
	Vision    string `json:"vision"`
	// Traction is any JSON value the founder supplies.
	Traction   json.RawMessage `json:"traction"`
	FundingAsk *float64        `json:"funding_ask"`
	Status     PitchStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// PitchListing is a pitch joined with its founder's display metadata.
type PitchListing struct {
	Pitch
	FounderName        string  `json:"founder_name"`
	FounderDisplayName *string `json:"founder_display_name"`
}

type PitchFilter struct {
	Status PitchStatus
	Limit  int
	Offset int
}

// NormalizeTraction maps a missing or null traction value to an empty object.
func NormalizeTraction(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	return trimmed
}
