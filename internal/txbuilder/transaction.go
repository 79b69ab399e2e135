package txbuilder

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// U64 marshals as a decimal string so 64-bit amounts survive JSON consumers
// that read numbers as floats. Unmarshaling accepts both encodings.
type U64 uint64

func (u U64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

func (u *U64) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		parsed, err := strconv.ParseUint(asString, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid u64 string %q: %w", asString, err)
		}
		*u = U64(parsed)
		return nil
	}
	var asNumber uint64
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("invalid u64 value %s", data)
	}
	*u = U64(asNumber)
	return nil
}

// UnsignedTransaction describes one ledger call as an ordered command list.
// It is handed to the caller's wallet for signing and broadcast; this layer
// never retains it and never learns the execution outcome.
type UnsignedTransaction struct {
	Commands []Command `json:"commands"`
}

type CommandKind string

const (
	CommandSplitCoins CommandKind = "split_coins"
	CommandMoveCall   CommandKind = "move_call"
)

type Command struct {
	Kind       CommandKind        `json:"kind"`
	SplitCoins *SplitCoinsCommand `json:"split_coins,omitempty"`
	MoveCall   *MoveCallCommand   `json:"move_call,omitempty"`
}

// SplitCoinsCommand splits payment coins off the signer's gas coin.
type SplitCoinsCommand struct {
	Amounts []U64 `json:"amounts"`
}

// MoveCallCommand invokes one entry function of the parking program.
type MoveCallCommand struct {
	Target    string     `json:"target"`
	Arguments []Argument `json:"arguments"`
}

type ArgumentKind string

const (
	ArgObject  ArgumentKind = "object"
	ArgU64     ArgumentKind = "pure_u64"
	ArgString  ArgumentKind = "pure_string"
	ArgAddress ArgumentKind = "pure_address"
	ArgResult  ArgumentKind = "result"
)

// Argument is one typed call argument. Exactly one payload field is set,
// matching Kind; Result points at the output of an earlier command.
type Argument struct {
	Kind    ArgumentKind `json:"kind"`
	Object  string       `json:"object,omitempty"`
	U64     *U64         `json:"u64,omitempty"`
	Text    string       `json:"string,omitempty"`
	Address string       `json:"address,omitempty"`
	Result  *int         `json:"result,omitempty"`
}

func objectArg(id string) Argument {
	return Argument{Kind: ArgObject, Object: id}
}

func u64Arg(value uint64) Argument {
	v := U64(value)
	return Argument{Kind: ArgU64, U64: &v}
}

func stringArg(value string) Argument {
	return Argument{Kind: ArgString, Text: value}
}

func addressArg(value string) Argument {
	return Argument{Kind: ArgAddress, Address: value}
}

func resultArg(command int) Argument {
	return Argument{Kind: ArgResult, Result: &command}
}
