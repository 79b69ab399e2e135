package ledger

import "strings"

const addressHexLen = 64

// IsValidAddress reports whether s is a syntactically well-formed ledger
// address: 0x followed by 64 hex characters. It says nothing about whether
// the account exists or is reachable.
func IsValidAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	body := s[2:]
	if len(body) != addressHexLen {
		return false
	}
	for _, c := range body {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsValidObjectRef reports whether s is a well-formed object reference.
// Object identifiers share the address format on this ledger.
func IsValidObjectRef(s string) bool {
	return IsValidAddress(s)
}
