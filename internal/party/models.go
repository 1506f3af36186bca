package party

import "time"

const (
	// MaxMembers caps squad size, leader included.
	MaxMembers = 7

	inviteCodeLen  = 6
	presenceWindow = 60 * time.Second
)

type Party struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LeaderID      string    `json:"leader_id"`
	InviteCode    string    `json:"invite_code"`
	BroadcastMode bool      `json:"broadcast_mode"`
	DestLat       *float64  `json:"dest_lat,omitempty"`
	DestLng       *float64  `json:"dest_lng,omitempty"`
	DestName      *string   `json:"dest_name,omitempty"`
	Members       []Member  `json:"members"`
	CreatedAt     time.Time `json:"created_at"`
}

// HasDestination reports whether the leader has published a shared destination.
func (p *Party) HasDestination() bool {
	return p != nil && p.DestLat != nil && p.DestLng != nil
}

type Member struct {
	PartyID       string     `json:"party_id"`
	UserID        string     `json:"user_id"`
	DisplayName   string     `json:"display_name"`
	AvatarURL     string     `json:"avatar_url,omitempty"`
	LastLat       *float64   `json:"last_lat,omitempty"`
	LastLng       *float64   `json:"last_lng,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`
	Online        bool       `json:"online"`
	JoinedAt      time.Time  `json:"joined_at"`
}

type CreateRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type JoinRequest struct {
	InviteCode  string `json:"invite_code"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// PatchRequest is the leader-only write. Destination fields are applied only
// when both coordinates are present; ClearDestination removes the shared
// destination entirely.
type PatchRequest struct {
	PartyID          string   `json:"party_id"`
	DestLat          *float64 `json:"dest_lat,omitempty"`
	DestLng          *float64 `json:"dest_lng,omitempty"`
	DestName         *string  `json:"dest_name,omitempty"`
	BroadcastMode    *bool    `json:"broadcast_mode,omitempty"`
	ClearDestination bool     `json:"clear_destination,omitempty"`
}

type HeartbeatRequest struct {
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Heading *float64 `json:"heading,omitempty"`
}
