package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wycliu/parkrwa-backend/api/responses"
	"github.com/wycliu/parkrwa-backend/internal/snapshot"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/ledger"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

// SnapshotReader serves the cached view stored by the refresh worker.
type SnapshotReader interface {
	LoadSpaces(ctx context.Context) (*snapshot.SpacesSnapshot, error)
	LoadPayments(ctx context.Context) (*snapshot.PaymentsSnapshot, error)
}

const sourceSnapshot = "snapshot"

type spacesResponse struct {
	Records []spaces.Space `json:"records"`
	Count   int            `json:"count"`
	PassID  string         `json:"pass_id,omitempty"`
	TakenAt *time.Time     `json:"taken_at,omitempty"`
}

type paymentsResponse struct {
	Records []spaces.PaymentReceipt `json:"records"`
	Count   int                     `json:"count"`
	PassID  string                  `json:"pass_id,omitempty"`
	TakenAt *time.Time              `json:"taken_at,omitempty"`
}

func wantsSnapshot(r *http.Request, snaps SnapshotReader) bool {
	return snaps != nil && r.URL.Query().Get("source") == sourceSnapshot
}

// loadSpacesSnapshot returns the cached view, nil when no pass has completed yet.
func loadSpacesSnapshot(r *http.Request, snaps SnapshotReader) (*snapshot.SpacesSnapshot, error) {
	snap, err := snaps.LoadSpaces(r.Context())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot store unavailable")
	}
	return snap, nil
}

func snapshotSpacesResponse(snap *snapshot.SpacesSnapshot, records []spaces.Space) spacesResponse {
	taken := snap.TakenAt
	return spacesResponse{
		Records: records,
		Count:   len(records),
		PassID:  snap.PassID,
		TakenAt: &taken,
	}
}

// SpacesList returns every tracked space, live by default or from the latest
// snapshot with ?source=snapshot. A snapshot request falls back to a live pass
// when no snapshot exists yet.
func SpacesList(svc spaces.Service, snaps SnapshotReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		if wantsSnapshot(r, snaps) {
			snap, err := loadSpacesSnapshot(r, snaps)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if snap != nil {
				responses.WriteSuccess(w, snapshotSpacesResponse(snap, snap.Records))
				return
			}
		}

		records, err := svc.FetchAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spacesResponse{Records: records, Count: len(records)})
	}
}

// SpacesAvailable returns listed spaces only.
func SpacesAvailable(svc spaces.Service, snaps SnapshotReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		if wantsSnapshot(r, snaps) {
			snap, err := loadSpacesSnapshot(r, snaps)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if snap != nil {
				listed := make([]spaces.Space, 0, len(snap.Records))
				for _, space := range snap.Records {
					if space.Listed() {
						listed = append(listed, space)
					}
				}
				responses.WriteSuccess(w, snapshotSpacesResponse(snap, listed))
				return
			}
		}

		records, err := svc.FetchAvailable(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spacesResponse{Records: records, Count: len(records)})
	}
}

// SpacesOwned returns the spaces owned by the given address. Ownership is an
// exact match on the stored owner field.
func SpacesOwned(svc spaces.Service, snaps SnapshotReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		owner := chi.URLParam(r, "address")
		if !ledger.IsValidAddress(owner) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidArgument, "malformed owner address"))
			return
		}

		if wantsSnapshot(r, snaps) {
			snap, err := loadSpacesSnapshot(r, snaps)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if snap != nil {
				owned := make([]spaces.Space, 0)
				for _, space := range snap.Records {
					if space.Owner == owner {
						owned = append(owned, space)
					}
				}
				responses.WriteSuccess(w, snapshotSpacesResponse(snap, owned))
				return
			}
		}

		records, err := svc.FetchOwned(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, spacesResponse{Records: records, Count: len(records)})
	}
}

// SpaceFetch reads a single space directly from the ledger.
func SpaceFetch(svc spaces.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		id := chi.URLParam(r, "id")
		space, err := svc.FetchOne(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if space == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "space not found"))
			return
		}
		responses.WriteSuccess(w, space)
	}
}

// LotFetch reads the parking lot object.
func LotFetch(svc spaces.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		lot, err := svc.FetchLot(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if lot == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "lot not found"))
			return
		}
		responses.WriteSuccess(w, lot)
	}
}

// PaymentsList returns the payment receipt feed.
func PaymentsList(svc spaces.Service, snaps SnapshotReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spaces service unavailable"))
			return
		}

		if wantsSnapshot(r, snaps) {
			snap, err := snaps.LoadPayments(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot store unavailable"))
				return
			}
			if snap != nil {
				taken := snap.TakenAt
				responses.WriteSuccess(w, paymentsResponse{
					Records: snap.Records,
					Count:   len(snap.Records),
					PassID:  snap.PassID,
					TakenAt: &taken,
				})
				return
			}
		}

		records, err := svc.FetchPayments(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, paymentsResponse{Records: records, Count: len(records)})
	}
}
