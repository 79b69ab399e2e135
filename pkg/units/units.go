// Package units converts between human-entered decimal currency amounts and
// the ledger's integer base denomination. Every amount that reaches a
// transaction builder goes through ToBaseUnits; float64 never touches an
// authoritative amount, only display formatting is allowed to approximate.
package units

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
)

// LedgerScale is the canonical decimal scale of the ledger's coin: one
// display unit equals 10^9 base units (nanos).
const LedgerScale int32 = 9

// ToBaseUnits converts a decimal display amount into base units using exact
// decimal arithmetic, multiply then floor. Rejects non-numeric, negative,
// and out-of-range inputs.
func ToBaseUnits(amount string, scale int32) (uint64, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount is required")
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, fmt.Sprintf("amount %q is not numeric", trimmed))
	}
	if d.IsNegative() {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must not be negative")
	}

	scaled := d.Shift(scale).Floor()
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount exceeds the representable range")
	}
	return bi.Uint64(), nil
}

// ToPositiveBaseUnits is ToBaseUnits with a strictly-positive requirement,
// used for fields like the hourly rate where zero is not a meaningful value.
func ToPositiveBaseUnits(amount string, scale int32) (uint64, error) {
	base, err := ToBaseUnits(amount, scale)
	if err != nil {
		return 0, err
	}
	if base == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive")
	}
	return base, nil
}

// ToDisplay formats a base-unit amount as a decimal display string with
// trailing zeros trimmed.
func ToDisplay(base uint64, scale int32) string {
	return decimal.NewFromUint64(base).Shift(-scale).String()
}
