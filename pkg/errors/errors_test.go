package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeInvalidAmount, http.StatusBadRequest, false},
		{CodeInvalidArgument, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeSyncUnavailable, http.StatusServiceUnavailable, true},
		{CodeTxRejected, http.StatusUnprocessableEntity, false},
		{CodeInternal, http.StatusInternalServerError, true},
		{Code("UNKNOWN_CODE"), http.StatusInternalServerError, true},
	}

	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable %v", tc.code, tc.retryable)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeSyncUnavailable, cause, "event query failed")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if err.Error() != "SYNC_UNAVAILABLE: event query failed" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAsThroughFmtWrapping(t *testing.T) {
	inner := New(CodeInvalidArgument, "hours out of range")
	outer := fmt.Errorf("building payment: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeInvalidArgument {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
	if !HasCode(outer, CodeInvalidArgument) {
		t.Fatal("HasCode should see the wrapped code")
	}
	if HasCode(outer, CodeNotFound) {
		t.Fatal("HasCode matched the wrong code")
	}
}

func TestDump(t *testing.T) {
	cause := stdErrors.New("dial tcp: connection refused")
	err := Wrap(CodeSyncUnavailable, cause, "event query failed")

	dump := Dump(err)
	if dump.Code != string(CodeSyncUnavailable) {
		t.Fatalf("unexpected dump code: %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}
