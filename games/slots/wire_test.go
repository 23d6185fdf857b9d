package slots

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("%w: 9", ErrInvalidSlot), http.StatusBadRequest, CodeInvalidSlot},
		{ErrEmptyIdentity, http.StatusBadRequest, CodeBadRequest},
		{fmt.Errorf("%w for slot 1", ErrWrongSecret), http.StatusUnprocessableEntity, CodeWrongSecret},
		{fmt.Errorf("%w: slot 1", ErrSlotTaken), http.StatusConflict, CodeSlotTaken},
		{&ConflictError{Existing: 2}, http.StatusForbidden, CodeConflict},
		{fmt.Errorf("%w: %w", ErrInternal, ErrAlreadyClaimedSlot), http.StatusInternalServerError, CodeInternal},
		{errors.New("something else"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
		if got := NewErrorResponse(tt.err).Code; got != tt.code {
			t.Errorf("code for %v = %q, want %q", tt.err, got, tt.code)
		}
	}
}

func TestConflictResponseCarriesExistingPick(t *testing.T) {
	resp := NewErrorResponse(&ConflictError{Existing: 3})
	if resp.YourPick == nil || *resp.YourPick != 3 {
		t.Fatalf("expected your_pick 3, got %v", resp.YourPick)
	}

	err := ErrorFromResponse(http.StatusForbidden, resp)
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Existing != 3 {
		t.Fatalf("round trip lost existing pick: %v", err)
	}
}

func TestInternalErrorsAreNotDescribed(t *testing.T) {
	resp := NewErrorResponse(fmt.Errorf("%w: %w", ErrInternal, ErrInconsistentLedger))
	if resp.Error != "internal error" {
		t.Fatalf("internal detail leaked: %q", resp.Error)
	}
}

func TestErrorFromResponse(t *testing.T) {
	tests := []struct {
		status int
		body   ErrorResponse
		want   error
	}{
		{http.StatusConflict, ErrorResponse{Code: CodeSlotTaken}, ErrSlotTaken},
		{http.StatusForbidden, ErrorResponse{Code: CodeConflict}, ErrConflictingClaim},
		{http.StatusUnprocessableEntity, ErrorResponse{Code: CodeWrongSecret}, ErrWrongSecret},
		{http.StatusBadRequest, ErrorResponse{Code: CodeInvalidSlot}, ErrInvalidSlot},
	}

	for _, tt := range tests {
		if err := ErrorFromResponse(tt.status, tt.body); !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}

	var te *TransientError
	if err := ErrorFromResponse(http.StatusBadGateway, ErrorResponse{}); !errors.As(err, &te) {
		t.Fatalf("expected transient error for 502, got %v", err)
	}
}
