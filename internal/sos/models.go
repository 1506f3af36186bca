package sos

import "time"

const (
	TypeMechanical = "mechanical"
	TypeAccident   = "accident"
	TypeMedical    = "medical"

	StatusActive   = "active"
	StatusResolved = "resolved"
)

// Signal is a distress beacon raised by a rider. Resolved signals are kept as
// the audit trail; only active ones are served to the overlay.
type Signal struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Lat        float64    `json:"lat"`
	Lng        float64    `json:"lng"`
	Note       string     `json:"note,omitempty"`
	Status     string     `json:"status"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func (s Signal) Active() bool { return s.Status == StatusActive }

type RaiseRequest struct {
	Type string  `json:"type"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Note string  `json:"note"`
}

func ValidType(t string) bool {
	switch t {
	case TypeMechanical, TypeAccident, TypeMedical:
		return true
	}
	return false
}
