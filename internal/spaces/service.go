package spaces

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/ledger"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
	"github.com/wycliu/parkrwa-backend/pkg/metrics"
)

const moduleName = "parking_rwa"

const (
	eventMint    = "MintEvent"
	eventPayment = "PaymentEvent"
)

const (
	viewSpaces   = "spaces"
	viewPayments = "payments"
)

// Config identifies the on-chain program and lot this synchronizer reads.
// It is threaded in explicitly at construction time so tests can substitute
// arbitrary identifiers.
type Config struct {
	PackageID string
	LotID     string
}

// EventType returns the fully-qualified move event type for this program.
func (c Config) EventType(name string) string {
	return fmt.Sprintf("%s::%s::%s", c.PackageID, moduleName, name)
}

// Configured reports whether the program identifier is usable. Placeholder
// values short-circuit synchronization to an empty result instead of issuing
// doomed network calls.
func (c Config) Configured() bool {
	id := strings.TrimSpace(c.PackageID)
	return id != "" && !strings.HasPrefix(id, "0x...")
}

// LotConfigured reports whether the lot identifier is usable.
func (c Config) LotConfigured() bool {
	id := strings.TrimSpace(c.LotID)
	return id != "" && !strings.HasPrefix(id, "0x...")
}

// Service reconstructs asset views from the ledger. Each call builds its own
// result from scratch; concurrent passes share no mutable state, and the
// service performs no internal retries.
type Service interface {
	FetchAll(ctx context.Context) ([]Space, error)
	FetchOwned(ctx context.Context, owner string) ([]Space, error)
	FetchAvailable(ctx context.Context) ([]Space, error)
	FetchOne(ctx context.Context, id string) (*Space, error)
	FetchLot(ctx context.Context) (*Lot, error)
	FetchPayments(ctx context.Context) ([]PaymentReceipt, error)
}

// ServiceParams configure the synchronizer.
type ServiceParams struct {
	Ledger  ledger.Client
	Config  Config
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

type service struct {
	ledger  ledger.Client
	cfg     Config
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewService wires a synchronizer over the given ledger client.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		ledger:  params.Ledger,
		cfg:     params.Config,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

// FetchAll discovers every minted space through the event log, hydrates the
// objects, and parses them into records. Event discovery failure fails the
// whole pass; per-object hydration failures only drop that object.
func (s *service) FetchAll(ctx context.Context) ([]Space, error) {
	ctx = s.logg.WithPassID(ctx, uuid.NewString())

	if !s.cfg.Configured() {
		s.logg.Warn(ctx, "package id not configured, returning empty view")
		return nil, nil
	}

	start := time.Now()
	events, err := s.ledger.QueryEvents(ctx, s.cfg.EventType(eventMint))
	if err != nil {
		s.metrics.IncFailure(viewSpaces)
		return nil, pkgerrors.Wrap(pkgerrors.CodeSyncUnavailable, err, "mint event discovery failed")
	}

	ids := spaceIDs(events)
	if len(ids) == 0 {
		s.finishPass(ctx, viewSpaces, start, 0, 0)
		return nil, nil
	}

	objects := s.hydrate(ctx, ids)

	records := make([]Space, 0, len(objects))
	skipped := len(ids) - len(objects)
	for _, obj := range objects {
		record := ParseSpace(obj)
		if record == nil {
			skipped++
			continue
		}
		records = append(records, *record)
	}

	s.finishPass(ctx, viewSpaces, start, len(records), skipped)
	return records, nil
}

// FetchOwned returns the spaces whose owner matches exactly. Matching is
// case-sensitive with no normalization; the chain stores the address verbatim.
func (s *service) FetchOwned(ctx context.Context, owner string) ([]Space, error) {
	if !ledger.IsValidAddress(owner) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "owner is not a valid ledger address")
	}

	all, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]Space, 0, len(all))
	for _, space := range all {
		if space.Owner == owner {
			owned = append(owned, space)
		}
	}
	return owned, nil
}

// FetchAvailable returns the spaces currently listed for sale.
func (s *service) FetchAvailable(ctx context.Context) ([]Space, error) {
	all, err := s.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	available := make([]Space, 0, len(all))
	for _, space := range all {
		if space.Listed() {
			available = append(available, space)
		}
	}
	return available, nil
}

// FetchOne reads a single space directly, bypassing event discovery. Returns
// nil without error when the object exists but is not a parseable space.
func (s *service) FetchOne(ctx context.Context, id string) (*Space, error) {
	if !ledger.IsValidObjectRef(id) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "space id is not a valid object reference")
	}

	ctx = s.logg.WithSpaceID(ctx, id)
	obj, err := s.ledger.GetObject(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSyncUnavailable, err, "space read failed")
	}
	space := ParseSpace(obj)
	if space == nil {
		s.logg.Warn(ctx, "object is not a parking space, excluding from view")
	}
	return space, nil
}

// FetchLot reads the configured lot object.
func (s *service) FetchLot(ctx context.Context) (*Lot, error) {
	if !s.cfg.LotConfigured() {
		s.logg.Warn(ctx, "lot id not configured, returning empty lot")
		return nil, nil
	}

	obj, err := s.ledger.GetObject(ctx, s.cfg.LotID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSyncUnavailable, err, "lot read failed")
	}
	return ParseLot(obj), nil
}

// FetchPayments returns the pay-for-parking receipts recorded in the event
// log, in discovery order.
func (s *service) FetchPayments(ctx context.Context) ([]PaymentReceipt, error) {
	ctx = s.logg.WithPassID(ctx, uuid.NewString())

	if !s.cfg.Configured() {
		s.logg.Warn(ctx, "package id not configured, returning empty payment feed")
		return nil, nil
	}

	start := time.Now()
	events, err := s.ledger.QueryEvents(ctx, s.cfg.EventType(eventPayment))
	if err != nil {
		s.metrics.IncFailure(viewPayments)
		return nil, pkgerrors.Wrap(pkgerrors.CodeSyncUnavailable, err, "payment event discovery failed")
	}

	receipts := make([]PaymentReceipt, 0, len(events))
	skipped := 0
	for _, event := range events {
		receipt := ParsePaymentReceipt(event)
		if receipt == nil {
			skipped++
			continue
		}
		receipts = append(receipts, *receipt)
	}

	s.finishPass(ctx, viewPayments, start, len(receipts), skipped)
	return receipts, nil
}

// spaceIDs extracts the asset identifier from each mint event, skipping
// payloads with no resolvable identifier and deduplicating while preserving
// discovery order so a replayed event log never hydrates an object twice.
func spaceIDs(events []ledger.Event) []string {
	seen := make(map[string]struct{}, len(events))
	ids := make([]string, 0, len(events))
	for _, event := range events {
		id := event.StringField("space_id")
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// hydrate resolves the identifiers in one bulk read, falling back to
// concurrent per-object reads when the bulk primitive is unavailable or
// fails. One failing read never aborts the others; its object is simply
// absent from the returned slice. Order follows the input identifiers.
func (s *service) hydrate(ctx context.Context, ids []string) []*ledger.ObjectResult {
	objects, err := s.ledger.MultiGetObjects(ctx, ids)
	if err == nil {
		return objects
	}
	if !errors.Is(err, ledger.ErrBulkUnsupported) {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "bulk object read failed, falling back to per-object reads")
	}

	results := make([]*ledger.ObjectResult, len(ids))
	readErrs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			obj, err := s.ledger.GetObject(ctx, id)
			if err != nil {
				readErrs[i] = fmt.Errorf("hydrate %s: %w", id, err)
				return
			}
			results[i] = obj
		}(i, id)
	}
	wg.Wait()

	if combined := multierr.Combine(readErrs...); combined != nil {
		s.logg.Warn(s.logg.WithField(ctx, "errors", combined.Error()), "some objects failed to hydrate")
	}

	hydrated := make([]*ledger.ObjectResult, 0, len(results))
	for _, obj := range results {
		if obj != nil {
			hydrated = append(hydrated, obj)
		}
	}
	return hydrated
}

func (s *service) finishPass(ctx context.Context, view string, start time.Time, hydrated, skipped int) {
	duration := time.Since(start)
	s.metrics.ObserveDuration(view, duration)
	s.metrics.IncSuccess(view)
	s.metrics.AddHydrated(view, hydrated)
	s.metrics.AddSkipped(view, skipped)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"view":        view,
		"hydrated":    hydrated,
		"skipped":     skipped,
		"duration_ms": duration.Milliseconds(),
	})
	s.logg.Info(ctx, "synchronization pass complete")
}
