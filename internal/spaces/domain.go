// Package spaces reconstructs the application-level view of tokenized
// parking-space assets from ledger events and object reads. Records are
// recomputed on every pass; nothing here persists state between calls.
package spaces

// Space is one tokenized parking-space asset. Monetary fields are base-unit
// integers at the ledger's native scale; Price zero means not listed for sale.
type Space struct {
	ID         string `json:"id"`
	Location   string `json:"location"`
	HourlyRate uint64 `json:"hourly_rate,string"`
	Owner      string `json:"owner"`
	Price      uint64 `json:"price,string"`
}

// Listed reports whether the space is offered for sale.
func (s Space) Listed() bool {
	return s.Price > 0
}

// Lot is the parent collection a space is minted under. Read-only here; the
// on-chain program owns the operator and commission configuration.
type Lot struct {
	ID                string `json:"id"`
	Operator          string `json:"operator"`
	CommissionRateBps uint64 `json:"commission_rate_bps"`
}

// PaymentReceipt is the typed shape of a pay-for-parking event. The split
// amounts are produced by the ledger program and passed through untouched;
// this layer never recomputes or verifies them.
type PaymentReceipt struct {
	SpaceID       string `json:"space_id"`
	Payer         string `json:"payer"`
	Hours         uint64 `json:"hours"`
	TotalAmount   uint64 `json:"total_amount,string"`
	OwnerShare    uint64 `json:"owner_share,string"`
	OperatorShare uint64 `json:"operator_share,string"`
	TxDigest      string `json:"tx_digest,omitempty"`
}
