package spaces

import (
	"strconv"

	"github.com/wycliu/parkrwa-backend/pkg/ledger"
)

// ParseSpace maps a raw object read into a Space, or nil when the object is
// not a parking space at all. Parsing is tolerant: an object whose
// fields container is missing (deleted, pruned, foreign type) is silently
// excluded from the view, while an object that has the container but lacks
// individual fields is kept with zero-value defaults so degraded records
// stay visible downstream.
func ParseSpace(obj *ledger.ObjectResult) *Space {
	fields := contentFields(obj)
	if fields == nil {
		return nil
	}
	if obj.Data.ObjectID == "" {
		return nil
	}

	return &Space{
		ID:         obj.Data.ObjectID,
		Location:   stringField(fields, "location"),
		HourlyRate: uintField(fields, "hourly_rate"),
		Owner:      stringField(fields, "owner"),
		Price:      uintField(fields, "price"),
	}
}

// ParseLot maps a raw object read into the lot configuration, nil when the
// object does not carry the expected content.
func ParseLot(obj *ledger.ObjectResult) *Lot {
	fields := contentFields(obj)
	if fields == nil {
		return nil
	}
	if obj.Data.ObjectID == "" {
		return nil
	}

	return &Lot{
		ID:                obj.Data.ObjectID,
		Operator:          stringField(fields, "operator"),
		CommissionRateBps: uintField(fields, "commission_rate_bps"),
	}
}

// ParsePaymentReceipt maps a pay-for-parking event payload into a receipt,
// nil when the event carries no payload.
func ParsePaymentReceipt(event ledger.Event) *PaymentReceipt {
	if event.ParsedJSON == nil {
		return nil
	}

	return &PaymentReceipt{
		SpaceID:       stringField(event.ParsedJSON, "space_id"),
		Payer:         stringField(event.ParsedJSON, "payer"),
		Hours:         uintField(event.ParsedJSON, "hours"),
		TotalAmount:   uintField(event.ParsedJSON, "total_amount"),
		OwnerShare:    uintField(event.ParsedJSON, "owner_share"),
		OperatorShare: uintField(event.ParsedJSON, "operator_share"),
		TxDigest:      event.TxDigest,
	}
}

func contentFields(obj *ledger.ObjectResult) map[string]any {
	if obj == nil || obj.Data == nil || obj.Data.Content == nil {
		return nil
	}
	return obj.Data.Content.Fields
}

func stringField(fields map[string]any, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

// uintField reads an unsigned integer that the node may encode either as a
// JSON string (the usual u64 wire form) or as a JSON number.
func uintField(fields map[string]any, name string) uint64 {
	switch v := fields[name].(type) {
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	default:
		return 0
	}
}
