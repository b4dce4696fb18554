package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelClassification(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{NotFound("request", 7), ErrNotFound},
		{Conflict("already claimed"), ErrConflict},
		{NotOwner("not yours"), ErrNotOwner},
		{AlreadyClosed(7), ErrInvalidTransition},
		{InvalidTransition("already open"), ErrInvalidTransition},
		{Validation("empty name"), ErrValidation},
		{Unauthorized("bad credentials"), ErrUnauthorized},
		{Unavailable("index down", nil), ErrUnavailable},
	}

	for _, c := range cases {
		if !errors.Is(c.err, c.sentinel) {
			t.Errorf("%v does not match sentinel %v", c.err, c.sentinel)
		}
	}
}

func TestWrappedErrorsSurviveFurtherWrapping(t *testing.T) {
	err := fmt.Errorf("handling command: %w", NotFound("request", 3))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("classification lost through wrapping: %v", err)
	}
}

func TestUnavailableKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("package index unreachable", cause)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("missing Unavailable sentinel: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
	if err.Error() != "package index unreachable" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestNotFoundMessage(t *testing.T) {
	if got := NotFound("user", 42).Error(); got != "user 42 not found" {
		t.Fatalf("message = %q", got)
	}
}
