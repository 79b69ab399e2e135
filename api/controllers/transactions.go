package controllers

import (
	"net/http"

	"github.com/wycliu/parkrwa-backend/api/responses"
	"github.com/wycliu/parkrwa-backend/api/validators"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/internal/txbuilder"
	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
	"github.com/wycliu/parkrwa-backend/pkg/units"
)

// Transaction controllers build unsigned payloads only. The caller signs and
// submits with their own wallet; no key material ever reaches this service.

type paymentRequest struct {
	SpaceID string `json:"space_id" validate:"required"`
	Hours   uint64 `json:"hours" validate:"required,min=1,max=24"`
}

// TxPayment builds an unsigned pay-for-parking transaction. The hourly rate is
// read from the current on-ledger state of the space, never from the request.
func TxPayment(builder *txbuilder.Builder, svc spaces.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction builder unavailable"))
			return
		}

		var payload paymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		space, err := svc.FetchOne(r.Context(), payload.SpaceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if space == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "space not found"))
			return
		}

		tx, err := builder.Payment(space.ID, space.HourlyRate, payload.Hours)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

type purchaseRequest struct {
	SpaceID string `json:"space_id" validate:"required"`
}

// TxPurchase builds an unsigned purchase transaction at the space's listed price.
func TxPurchase(builder *txbuilder.Builder, svc spaces.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction builder unavailable"))
			return
		}

		var payload purchaseRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		space, err := svc.FetchOne(r.Context(), payload.SpaceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if space == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "space not found"))
			return
		}

		tx, err := builder.Purchase(space.ID, space.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

type setPriceRequest struct {
	SpaceID string `json:"space_id" validate:"required"`
	Price   string `json:"price" validate:"required"`
}

// TxSetPrice builds an unsigned listing update. A price of zero delists the space.
func TxSetPrice(builder *txbuilder.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction builder unavailable"))
			return
		}

		var payload setPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		priceBase, err := units.ToBaseUnits(payload.Price, units.LedgerScale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := builder.SetPrice(payload.SpaceID, priceBase)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

type transferRequest struct {
	SpaceID   string `json:"space_id" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
}

// TxTransfer builds an unsigned ownership transfer.
func TxTransfer(builder *txbuilder.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction builder unavailable"))
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := builder.Transfer(payload.SpaceID, payload.Recipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

type mintRequest struct {
	Location   string `json:"location" validate:"required,min=1,max=200"`
	HourlyRate string `json:"hourly_rate" validate:"required"`
	Price      string `json:"price"`
}

// TxMint builds an unsigned mint for a new space. Amounts arrive as decimal
// display strings and convert exactly to base units.
func TxMint(builder *txbuilder.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction builder unavailable"))
			return
		}

		var payload mintRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rateBase, err := units.ToPositiveBaseUnits(payload.HourlyRate, units.LedgerScale)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var priceBase uint64
		if payload.Price != "" {
			priceBase, err = units.ToBaseUnits(payload.Price, units.LedgerScale)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		tx, err := builder.Mint(payload.Location, rateBase, priceBase)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

type outcomeRequest struct {
	TxDigest string `json:"tx_digest" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=success rejected"`
	Reason   string `json:"reason"`
}

// TxOutcome records the result of a client-side submission. Rejections are
// logged with the ledger's reason so failed executions stay observable even
// though signing happens entirely outside this service.
func TxOutcome(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload outcomeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithFields(r.Context(), map[string]any{
			"tx_digest": payload.TxDigest,
			"status":    payload.Status,
		})
		if payload.Status == "rejected" {
			err := pkgerrors.New(pkgerrors.CodeTxRejected, payload.Reason)
			logg.Error(ctx, "tx.rejected", err)
		} else {
			logg.Info(ctx, "tx.confirmed")
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]bool{"recorded": true})
	}
}
