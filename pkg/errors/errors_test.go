package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeNotFound, http.StatusNotFound, false},
		{CodeConflict, http.StatusConflict, false},
		{CodeStateConflict, http.StatusUnprocessableEntity, false},
		{CodeNetwork, http.StatusServiceUnavailable, true},
		{CodeLocalStorage, http.StatusInternalServerError, false},
		{CodeSyncInFlight, http.StatusConflict, true},
		{CodeInternal, http.StatusInternalServerError, true},
	}

	for _, tc := range cases {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.code, meta.HTTPStatus, tc.status)
		}
		if meta.Retryable != tc.retryable {
			t.Errorf("%s: retryable = %v, want %v", tc.code, meta.Retryable, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := stdErrors.New("boom")
	wrapped := Wrap(CodeNetwork, base, "ledger call failed")

	if wrapped.Code() != CodeNetwork {
		t.Fatalf("code = %s", wrapped.Code())
	}
	if !stdErrors.Is(wrapped, base) {
		t.Fatal("wrapped error should unwrap to cause")
	}
	if wrapped.Error() != "NETWORK_ERROR: ledger call failed" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}

	detailed := New(CodeValidation, "bad sale").WithDetails(map[string]string{"quantity": "must be positive"})
	if detailed.Details() == nil {
		t.Fatal("details were dropped")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "missing product"))
	typed := As(err)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("As failed to recover typed error: %v", typed)
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
}

func TestNetworkLogicDiscrimination(t *testing.T) {
	network := Wrap(CodeNetwork, stdErrors.New("dial tcp: connection refused"), "insert sale")
	logic := New(CodeValidation, "quantity must be positive")

	if !IsNetwork(network) || IsNetwork(logic) {
		t.Fatal("IsNetwork misclassified")
	}
	if !IsLogic(logic) || IsLogic(network) {
		t.Fatal("IsLogic misclassified")
	}
	if !IsRetryable(network) || IsRetryable(logic) {
		t.Fatal("IsRetryable misclassified")
	}
	if IsNetwork(stdErrors.New("untyped")) {
		t.Fatal("untyped error should not be network")
	}
}
