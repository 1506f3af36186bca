package sos

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/motocraft35/moto-asistan-sub000/internal/db"
	"github.com/motocraft35/moto-asistan-sub000/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrNotOwner    = errors.New("only the raising rider may resolve a signal")
	ErrInvalidType = errors.New("unknown signal type")
)

// Service is the authority for distress signals.
type Service struct {
	db  db.Querier
	hub *stream.Hub
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub}
}

func (s *Service) Raise(ctx context.Context, userID string, req RaiseRequest) (Signal, error) {
	if !ValidType(req.Type) {
		return Signal{}, ErrInvalidType
	}

	sig := Signal{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   req.Type,
		Lat:    req.Lat,
		Lng:    req.Lng,
		Note:   req.Note,
		Status: StatusActive,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO sos_signals (id, user_id, type, location, note, status)
		VALUES ($1,$2,$3, ST_SetSRID(ST_MakePoint($5,$4), 4326)::geography, $6, 'active')
		RETURNING raised_at
	`, sig.ID, sig.UserID, sig.Type, sig.Lat, sig.Lng, sig.Note)
	if err := row.Scan(&sig.RaisedAt); err != nil {
		return Signal{}, err
	}

	s.broadcast("sos_raised", sig)
	return sig, nil
}

// Resolve marks the signal resolved. Resolving an already-resolved or unknown
// signal is a no-op so duplicate taps or retried requests cannot fail.
func (s *Service) Resolve(ctx context.Context, userID, signalID string) (Signal, error) {
	sig, err := s.get(ctx, signalID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("sos: resolve for unknown signal %s, ignoring", signalID)
		return Signal{ID: signalID, Status: StatusResolved}, nil
	}
	if err != nil {
		return Signal{}, err
	}
	if sig.UserID != userID {
		return Signal{}, ErrNotOwner
	}
	if !sig.Active() {
		log.Printf("sos: signal %s already resolved, ignoring", signalID)
		return sig, nil
	}

	row := s.db.QueryRow(ctx, `
		UPDATE sos_signals SET status='resolved', resolved_at=now()
		WHERE id=$1 AND status='active'
		RETURNING resolved_at
	`, signalID)
	if err := row.Scan(&sig.ResolvedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// lost the race with another resolve; same outcome
			return s.get(ctx, signalID)
		}
		return Signal{}, err
	}
	sig.Status = StatusResolved

	s.broadcast("sos_resolved", sig)
	return sig, nil
}

// ListActive returns every unresolved signal, oldest first.
func (s *Service) ListActive(ctx context.Context) ([]Signal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(note,''), status, raised_at, resolved_at
		FROM sos_signals WHERE status='active'
		ORDER BY raised_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []Signal
	for rows.Next() {
		var sig Signal
		if err := rows.Scan(&sig.ID, &sig.UserID, &sig.Type, &sig.Lat, &sig.Lng, &sig.Note, &sig.Status, &sig.RaisedAt, &sig.ResolvedAt); err != nil {
			return nil, err
		}
		signals = append(signals, sig)
	}
	return signals, nil
}

func (s *Service) get(ctx context.Context, signalID string) (Signal, error) {
	var sig Signal
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, type, ST_Y(location::geometry), ST_X(location::geometry),
		       COALESCE(note,''), status, raised_at, resolved_at
		FROM sos_signals WHERE id=$1
	`, signalID)
	err := row.Scan(&sig.ID, &sig.UserID, &sig.Type, &sig.Lat, &sig.Lng, &sig.Note, &sig.Status, &sig.RaisedAt, &sig.ResolvedAt)
	return sig, err
}

func (s *Service) broadcast(event string, sig Signal) {
	if s.hub == nil {
		return
	}
	body, _ := json.Marshal(map[string]any{"type": event, "signal": sig})
	s.hub.Broadcast("sos", body)
}
