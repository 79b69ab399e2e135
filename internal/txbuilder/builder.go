// Package txbuilder constructs unsigned ledger transactions for the five
// mutating parking operations. Builders are pure: validated inputs in, an
// UnsignedTransaction out, no network access, no knowledge of whether the
// transaction ultimately executes. All monetary arguments are base-unit
// integers; decimal conversion happens in pkg/units before anything reaches
// this package.
package txbuilder

import (
	"fmt"
	"math/bits"
	"strings"

	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/ledger"
)

const moduleName = "parking_rwa"

const (
	opMint     = "mint_space"
	opPay      = "pay_for_parking"
	opPurchase = "purchase_space"
	opSetPrice = "set_price"
	opTransfer = "transfer_space"
)

const (
	// MinHours and MaxHours bound a single parking payment.
	MinHours uint64 = 1
	MaxHours uint64 = 24
)

// Config identifies the program and lot every built call targets.
type Config struct {
	PackageID string
	LotID     string
}

// Builder constructs unsigned transactions against one program/lot pair.
type Builder struct {
	cfg Config
}

// New validates the program configuration and returns a builder.
func New(cfg Config) (*Builder, error) {
	if !ledger.IsValidObjectRef(cfg.PackageID) {
		return nil, fmt.Errorf("package id %q is not a valid object reference", cfg.PackageID)
	}
	if !ledger.IsValidObjectRef(cfg.LotID) {
		return nil, fmt.Errorf("lot id %q is not a valid object reference", cfg.LotID)
	}
	return &Builder{cfg: cfg}, nil
}

func (b *Builder) target(op string) string {
	return fmt.Sprintf("%s::%s::%s", b.cfg.PackageID, moduleName, op)
}

// Payment builds a pay-for-parking transaction: split a payment coin of
// exactly hourlyRateBase x hours off the signer's gas coin, then invoke the
// pay operation with lot, space, hours, and the payment.
func (b *Builder) Payment(spaceID string, hourlyRateBase, hours uint64) (*UnsignedTransaction, error) {
	if err := requireRef("space id", spaceID); err != nil {
		return nil, err
	}
	if hours < MinHours || hours > MaxHours {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument,
			fmt.Sprintf("hours must be between %d and %d", MinHours, MaxHours))
	}
	amount, ok := mulU64(hourlyRateBase, hours)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "payment amount overflows u64")
	}

	return &UnsignedTransaction{Commands: []Command{
		{Kind: CommandSplitCoins, SplitCoins: &SplitCoinsCommand{Amounts: []U64{U64(amount)}}},
		{Kind: CommandMoveCall, MoveCall: &MoveCallCommand{
			Target: b.target(opPay),
			Arguments: []Argument{
				objectArg(b.cfg.LotID),
				objectArg(spaceID),
				u64Arg(hours),
				resultArg(0),
			},
		}},
	}}, nil
}

// Purchase builds a buy-this-space transaction at the given listing price.
// The price must be the listing price read from the current view; if it went
// stale between read and execution the ledger program rejects the purchase,
// which callers should treat as expected rather than exceptional.
func (b *Builder) Purchase(spaceID string, priceBase uint64) (*UnsignedTransaction, error) {
	if err := requireRef("space id", spaceID); err != nil {
		return nil, err
	}
	if priceBase == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "purchase price must be positive")
	}

	return &UnsignedTransaction{Commands: []Command{
		{Kind: CommandSplitCoins, SplitCoins: &SplitCoinsCommand{Amounts: []U64{U64(priceBase)}}},
		{Kind: CommandMoveCall, MoveCall: &MoveCallCommand{
			Target: b.target(opPurchase),
			Arguments: []Argument{
				objectArg(b.cfg.LotID),
				objectArg(spaceID),
				resultArg(0),
			},
		}},
	}}, nil
}

// SetPrice builds a listing-change transaction. Zero delists; any positive
// value lists or relists. There is no separate delist operation.
func (b *Builder) SetPrice(spaceID string, newPriceBase uint64) (*UnsignedTransaction, error) {
	if err := requireRef("space id", spaceID); err != nil {
		return nil, err
	}

	return &UnsignedTransaction{Commands: []Command{
		{Kind: CommandMoveCall, MoveCall: &MoveCallCommand{
			Target: b.target(opSetPrice),
			Arguments: []Argument{
				objectArg(spaceID),
				u64Arg(newPriceBase),
			},
		}},
	}}, nil
}

// Transfer builds an ownership-transfer transaction. The recipient is only
// checked syntactically; whether the account exists is the ledger's concern.
func (b *Builder) Transfer(spaceID, recipient string) (*UnsignedTransaction, error) {
	if err := requireRef("space id", spaceID); err != nil {
		return nil, err
	}
	if !ledger.IsValidAddress(recipient) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "recipient is not a valid ledger address")
	}

	return &UnsignedTransaction{Commands: []Command{
		{Kind: CommandMoveCall, MoveCall: &MoveCallCommand{
			Target: b.target(opTransfer),
			Arguments: []Argument{
				objectArg(spaceID),
				addressArg(recipient),
			},
		}},
	}}, nil
}

// Mint builds a mint-space transaction under the configured lot. Only the
// lot operator's signature will be accepted on-chain; that privilege is
// enforced by the ledger program and surfaces as an execution failure, not
// a build-time error here.
func (b *Builder) Mint(location string, hourlyRateBase, priceBase uint64) (*UnsignedTransaction, error) {
	if strings.TrimSpace(location) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "location is required")
	}
	if hourlyRateBase == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidArgument, "hourly rate must be positive")
	}

	return &UnsignedTransaction{Commands: []Command{
		{Kind: CommandMoveCall, MoveCall: &MoveCallCommand{
			Target: b.target(opMint),
			Arguments: []Argument{
				objectArg(b.cfg.LotID),
				stringArg(location),
				u64Arg(hourlyRateBase),
				u64Arg(priceBase),
			},
		}},
	}}, nil
}

func requireRef(name, value string) error {
	if !ledger.IsValidObjectRef(value) {
		return pkgerrors.New(pkgerrors.CodeInvalidArgument, fmt.Sprintf("%s is not a valid object reference", name))
	}
	return nil
}

func mulU64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, false
	}
	return lo, true
}
