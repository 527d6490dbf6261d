package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom_PreservesTypedErrors(t *testing.T) {
	orig := NotFound(fmt.Errorf("missing"))
	wrapped := fmt.Errorf("outer: %w", orig)

	ae := From(wrapped)
	if ae.Status != http.StatusNotFound || ae.Code != CodeNotFound {
		t.Fatalf("expected typed error preserved, got %+v", ae)
	}
}

func TestFrom_WrapsUnknownAs500(t *testing.T) {
	ae := From(errors.New("boom"))
	if ae.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", ae.Status)
	}
	if ae.Error() != "boom" {
		t.Fatalf("expected message to pass through, got %q", ae.Error())
	}
}

func TestFrom_NilIsNil(t *testing.T) {
	if From(nil) != nil {
		t.Fatalf("expected nil")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Conflict(errors.New("dup")))
	if !IsCode(err, CodeConflict) {
		t.Fatalf("expected conflict code match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(errors.New("plain"), CodeConflict) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestConstructorsCarryStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{NotFound(errors.New("x")), http.StatusNotFound, CodeNotFound},
		{Conflict(errors.New("x")), http.StatusConflict, CodeConflict},
		{UnsupportedOption(errors.New("x")), http.StatusBadRequest, CodeUnsupportedOption},
		{Validation(errors.New("x")), http.StatusBadRequest, CodeValidation},
		{InvalidState(errors.New("x")), http.StatusConflict, CodeInvalidState},
		{Upstream(errors.New("x")), http.StatusBadGateway, CodeUpstreamFailure},
	}
	for _, tc := range cases {
		if tc.err.Status != tc.status || tc.err.Code != tc.code {
			t.Fatalf("unexpected error: %+v", tc.err)
		}
	}
}
