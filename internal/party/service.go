package party

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/db"
	"github.com/motocraft35/moto-asistan-sub000/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotLeader         = errors.New("only the party leader may do this")
	ErrPartyFull         = errors.New("party is full")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrAlreadyInParty    = errors.New("already in a party")
	ErrNotInParty        = errors.New("not in a party")
)

// Service is the authority for party membership and the shared destination.
// Every mutation runs in a single transaction so two writes (leader patch vs a
// concurrent join or leave) cannot interleave and clobber each other;
// between leader destination writes last write wins, which is safe because a
// party has exactly one leader.
type Service struct {
	db  db.TxQuerier
	hub *stream.Hub
}

func NewService(db db.TxQuerier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// CurrentParty returns the party the user belongs to, or nil.
func (s *Service) CurrentParty(ctx context.Context, userID string) (*Party, error) {
	row := s.db.QueryRow(ctx, `
		SELECT p.id, p.name, p.leader_id, p.invite_code, p.broadcast_mode, p.dest_lat, p.dest_lng, p.dest_name, p.created_at
		FROM parties p
		JOIN party_members m ON m.party_id = p.id
		WHERE m.user_id=$1
	`, userID)

	var p Party
	err := row.Scan(&p.ID, &p.Name, &p.LeaderID, &p.InviteCode, &p.BroadcastMode, &p.DestLat, &p.DestLng, &p.DestName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if p.Members, err = s.loadMembers(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (Party, error) {
	if in, err := s.inParty(ctx, userID); err != nil {
		return Party{}, err
	} else if in {
		return Party{}, ErrAlreadyInParty
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Party{}, err
	}
	defer tx.Rollback(ctx)

	code, err := s.freeInviteCode(ctx, tx)
	if err != nil {
		return Party{}, err
	}

	p := Party{
		ID:         uuid.NewString(),
		Name:       req.Name,
		LeaderID:   userID,
		InviteCode: code,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO parties (id, name, leader_id, invite_code, broadcast_mode)
		VALUES ($1,$2,$3,$4,false)
		RETURNING created_at
	`, p.ID, p.Name, p.LeaderID, p.InviteCode)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return Party{}, err
	}

	member := Member{PartyID: p.ID, UserID: userID, DisplayName: req.DisplayName, AvatarURL: req.AvatarURL}
	row = tx.QueryRow(ctx, `
		INSERT INTO party_members (party_id, user_id, display_name, avatar_url)
		VALUES ($1,$2,$3,$4)
		RETURNING joined_at
	`, member.PartyID, member.UserID, member.DisplayName, member.AvatarURL)
	if err := row.Scan(&member.JoinedAt); err != nil {
		return Party{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Party{}, err
	}

	p.Members = []Member{member}
	return p, nil
}

func (s *Service) Join(ctx context.Context, userID string, req JoinRequest) (Party, error) {
	if len(req.InviteCode) != inviteCodeLen {
		return Party{}, ErrInvalidInviteCode
	}
	if in, err := s.inParty(ctx, userID); err != nil {
		return Party{}, err
	} else if in {
		return Party{}, ErrAlreadyInParty
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Party{}, err
	}
	defer tx.Rollback(ctx)

	var p Party
	row := tx.QueryRow(ctx, `
		SELECT id, name, leader_id, invite_code, broadcast_mode, dest_lat, dest_lng, dest_name, created_at
		FROM parties WHERE invite_code=$1
		FOR UPDATE
	`, req.InviteCode)
	err = row.Scan(&p.ID, &p.Name, &p.LeaderID, &p.InviteCode, &p.BroadcastMode, &p.DestLat, &p.DestLng, &p.DestName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrInvalidInviteCode
	}
	if err != nil {
		return Party{}, err
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM party_members WHERE party_id=$1`, p.ID).Scan(&count); err != nil {
		return Party{}, err
	}
	if count >= MaxMembers {
		return Party{}, ErrPartyFull
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO party_members (party_id, user_id, display_name, avatar_url)
		VALUES ($1,$2,$3,$4)
	`, p.ID, userID, req.DisplayName, req.AvatarURL)
	if err != nil {
		return Party{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Party{}, err
	}

	if p.Members, err = s.loadMembers(ctx, p.ID); err != nil {
		return Party{}, err
	}
	return p, nil
}

// Leave removes the user from their party. A departing leader hands the role
// to the longest-standing remaining member; the last member out dissolves the
// party.
func (s *Service) Leave(ctx context.Context, userID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var partyID, leaderID string
	row := tx.QueryRow(ctx, `
		SELECT p.id, p.leader_id
		FROM parties p
		JOIN party_members m ON m.party_id = p.id
		WHERE m.user_id=$1
		FOR UPDATE OF p
	`, userID)
	err = row.Scan(&partyID, &leaderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotInParty
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM party_members WHERE party_id=$1 AND user_id=$2`, partyID, userID); err != nil {
		return err
	}

	if leaderID == userID {
		var nextLeader string
		row := tx.QueryRow(ctx, `
			SELECT user_id FROM party_members WHERE party_id=$1
			ORDER BY joined_at LIMIT 1
		`, partyID)
		err := row.Scan(&nextLeader)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `DELETE FROM parties WHERE id=$1`, partyID); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if _, err := tx.Exec(ctx, `UPDATE parties SET leader_id=$2 WHERE id=$1`, partyID, nextLeader); err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// Patch applies a leader-only update to the shared destination and broadcast
// mode. Non-leaders are rejected before any write happens.
func (s *Service) Patch(ctx context.Context, userID string, req PatchRequest) (Party, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Party{}, err
	}
	defer tx.Rollback(ctx)

	var p Party
	row := tx.QueryRow(ctx, `
		SELECT id, name, leader_id, invite_code, broadcast_mode, dest_lat, dest_lng, dest_name, created_at
		FROM parties WHERE id=$1
		FOR UPDATE
	`, req.PartyID)
	err = row.Scan(&p.ID, &p.Name, &p.LeaderID, &p.InviteCode, &p.BroadcastMode, &p.DestLat, &p.DestLng, &p.DestName, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Party{}, ErrNotInParty
	}
	if err != nil {
		return Party{}, err
	}
	if p.LeaderID != userID {
		return Party{}, ErrNotLeader
	}

	if req.ClearDestination {
		p.DestLat, p.DestLng, p.DestName = nil, nil, nil
	} else if req.DestLat != nil && req.DestLng != nil {
		p.DestLat, p.DestLng = req.DestLat, req.DestLng
		p.DestName = req.DestName
	}
	if req.BroadcastMode != nil {
		p.BroadcastMode = *req.BroadcastMode
	}

	_, err = tx.Exec(ctx, `
		UPDATE parties
		SET dest_lat=$2, dest_lng=$3, dest_name=$4, broadcast_mode=$5
		WHERE id=$1
	`, p.ID, p.DestLat, p.DestLng, p.DestName, p.BroadcastMode)
	if err != nil {
		return Party{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Party{}, err
	}

	s.broadcast(p.ID, map[string]any{
		"type":           "party_update",
		"dest_lat":       p.DestLat,
		"dest_lng":       p.DestLng,
		"dest_name":      p.DestName,
		"broadcast_mode": p.BroadcastMode,
	})

	if p.Members, err = s.loadMembers(ctx, p.ID); err != nil {
		return Party{}, err
	}
	return p, nil
}

// Heartbeat records the member's position and presence and fans it out to the
// party's live map channel.
func (s *Service) Heartbeat(ctx context.Context, userID string, req HeartbeatRequest) error {
	var partyID string
	row := s.db.QueryRow(ctx, `
		UPDATE party_members
		SET last_location=ST_SetSRID(ST_MakePoint($3,$2), 4326)::geography,
		    last_heartbeat=now()
		WHERE user_id=$1
		RETURNING party_id
	`, userID, req.Lat, req.Lng)
	err := row.Scan(&partyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotInParty
	}
	if err != nil {
		return err
	}

	s.broadcast(partyID, map[string]any{
		"type":    "position",
		"user_id": userID,
		"lat":     req.Lat,
		"lng":     req.Lng,
		"heading": req.Heading,
	})
	return nil
}

func (s *Service) loadMembers(ctx context.Context, partyID string) ([]Member, error) {
	rows, err := s.db.Query(ctx, `
		SELECT party_id, user_id, display_name, COALESCE(avatar_url,''),
		       ST_Y(last_location::geometry), ST_X(last_location::geometry), last_heartbeat, joined_at
		FROM party_members WHERE party_id=$1
		ORDER BY joined_at
	`, partyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	now := time.Now()
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.PartyID, &m.UserID, &m.DisplayName, &m.AvatarURL, &m.LastLat, &m.LastLng, &m.LastHeartbeat, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.Online = m.LastHeartbeat != nil && now.Sub(*m.LastHeartbeat) < presenceWindow
		members = append(members, m)
	}
	return members, nil
}

func (s *Service) inParty(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM party_members WHERE user_id=$1)`, userID).Scan(&exists)
	return exists, err
}

func (s *Service) freeInviteCode(ctx context.Context, tx pgx.Tx) (string, error) {
	for i := 0; i < 5; i++ {
		code := newInviteCode()
		var taken bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM parties WHERE invite_code=$1)`, code).Scan(&taken); err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not allocate invite code")
}

func (s *Service) broadcast(partyID string, payload map[string]any) {
	if s.hub == nil {
		return
	}
	body, _ := json.Marshal(payload)
	s.hub.Broadcast("party:"+partyID, body)
}

const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newInviteCode() string {
	b := make([]byte, inviteCodeLen)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b)
}
