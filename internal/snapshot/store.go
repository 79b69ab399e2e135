// Package snapshot persists the latest completed synchronization pass in
// Redis so the API can serve a cached view without touching the ledger. The
// core synchronizer stays stateless; the refresh cadence and the
// last-write-wins policy live entirely in this caller-side layer.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/pkg/redis"
)

const (
	scopeSpaces   = "spaces"
	scopePayments = "payments"
)

type keyValueStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	SnapshotKey(scope string) string
}

// Store reads and writes view snapshots. The newest completed pass always
// overwrites the previous one.
type Store struct {
	client keyValueStore
	ttl    time.Duration
}

// NewStore builds a snapshot store with the given retention TTL.
func NewStore(client keyValueStore, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("snapshot ttl must be positive")
	}
	return &Store{client: client, ttl: ttl}, nil
}

// SpacesSnapshot is one stored pass over the full asset view.
type SpacesSnapshot struct {
	PassID  string         `json:"pass_id"`
	TakenAt time.Time      `json:"taken_at"`
	Count   int            `json:"count"`
	Records []spaces.Space `json:"records"`
}

// PaymentsSnapshot is one stored pass over the payment feed.
type PaymentsSnapshot struct {
	PassID  string                  `json:"pass_id"`
	TakenAt time.Time               `json:"taken_at"`
	Count   int                     `json:"count"`
	Records []spaces.PaymentReceipt `json:"records"`
}

// SaveSpaces stores the result of a completed pass.
func (s *Store) SaveSpaces(ctx context.Context, records []spaces.Space) error {
	snap := SpacesSnapshot{
		PassID:  uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Count:   len(records),
		Records: records,
	}
	return s.save(ctx, scopeSpaces, snap)
}

// LoadSpaces returns the latest stored pass, nil when none exists.
func (s *Store) LoadSpaces(ctx context.Context) (*SpacesSnapshot, error) {
	raw, err := s.client.Get(ctx, s.client.SnapshotKey(scopeSpaces))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load spaces snapshot: %w", err)
	}
	var snap SpacesSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode spaces snapshot: %w", err)
	}
	return &snap, nil
}

// SavePayments stores the result of a completed payment-feed pass.
func (s *Store) SavePayments(ctx context.Context, records []spaces.PaymentReceipt) error {
	snap := PaymentsSnapshot{
		PassID:  uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Count:   len(records),
		Records: records,
	}
	return s.save(ctx, scopePayments, snap)
}

// LoadPayments returns the latest stored payment feed, nil when none exists.
func (s *Store) LoadPayments(ctx context.Context) (*PaymentsSnapshot, error) {
	raw, err := s.client.Get(ctx, s.client.SnapshotKey(scopePayments))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load payments snapshot: %w", err)
	}
	var snap PaymentsSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode payments snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Store) save(ctx context.Context, scope string, snap any) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", scope, err)
	}
	if err := s.client.Set(ctx, s.client.SnapshotKey(scope), string(encoded), s.ttl); err != nil {
		return fmt.Errorf("store %s snapshot: %w", scope, err)
	}
	return nil
}
