package domain

import "time"

// Interest is an investor's soft commitment to a pitch. There is at most one
// per (PitchID, InvestorID).
type Interest struct {
	ID         string    `json:"id"`
	PitchID    string    `json:"pitch_id"`
	InvestorID string    `json:"investor_id"`
	Amount     *float64  `json:"amount"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
