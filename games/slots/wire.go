/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package slots

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeBadRequest  = "bad_request"
	CodeInvalidSlot = "invalid_slot"
	CodeWrongSecret = "wrong_secret"
	CodeSlotTaken   = "slot_taken"
	CodeConflict    = "conflicting_claim"
	CodeInternal    = "internal"
)

// PickRequest is the body of a pick. Index is a pointer so that a missing
// index can be told apart from slot 0.
type PickRequest struct {
	Index  *int   `json:"index"`
	Secret string `json:"secret,omitempty"`
}

type PickResponse struct {
	OK    bool   `json:"ok"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	YourPick *int   `json:"your_pick,omitempty"`
}

// HTTPStatus maps an arbitration error to the status code it is served with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInternal),
		errors.Is(err, ErrAlreadyClaimedSlot),
		errors.Is(err, ErrAlreadyClaimedIdentity),
		errors.Is(err, ErrInconsistentLedger):
		return http.StatusInternalServerError
	case errors.Is(err, ErrConflictingClaim):
		return http.StatusForbidden
	case errors.Is(err, ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, ErrWrongSecret):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrEmptyIdentity):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// NewErrorResponse builds the body served alongside HTTPStatus(err). Internal
// errors are not described to the client.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Error: err.Error(),
	}

	switch HTTPStatus(err) {
	case http.StatusForbidden:
		resp.Code = CodeConflict
		resp.Error = "You already picked a slot"

		var ce *ConflictError
		if errors.As(err, &ce) {
			existing := ce.Existing
			resp.YourPick = &existing
		}
	case http.StatusConflict:
		resp.Code = CodeSlotTaken
		resp.Error = "Slot already taken"
	case http.StatusUnprocessableEntity:
		resp.Code = CodeWrongSecret
		resp.Error = "Wrong passcode"
	case http.StatusBadRequest:
		resp.Code = CodeInvalidSlot
		if errors.Is(err, ErrEmptyIdentity) {
			resp.Code = CodeBadRequest
		}
	default:
		resp.Code = CodeInternal
		resp.Error = "internal error"
	}

	return resp
}

// ErrorFromResponse turns a non-200 pick response back into the error that
// produced it, so clients can use errors.Is against the same sentinels.
func ErrorFromResponse(status int, body ErrorResponse) error {
	switch status {
	case http.StatusForbidden:
		if body.YourPick != nil {
			return &ConflictError{Existing: *body.YourPick}
		}
		return ErrConflictingClaim
	case http.StatusConflict:
		return ErrSlotTaken
	case http.StatusUnprocessableEntity:
		return ErrWrongSecret
	case http.StatusBadRequest:
		if body.Code == CodeInvalidSlot {
			return fmt.Errorf("%w: %s", ErrInvalidSlot, body.Error)
		}
		return fmt.Errorf("bad request: %s", body.Error)
	}

	if status >= 500 {
		return &TransientError{Status: status, Message: body.Error}
	}

	return fmt.Errorf("unexpected status %d: %s", status, body.Error)
}

// TransientError is a server-side or transport failure. Clients retry on the
// next tick and keep their last known state.
type TransientError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return "transient: " + e.Err.Error()
	}

	return fmt.Sprintf("transient: status %d: %s", e.Status, e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}
