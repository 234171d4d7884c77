package domain

import (
	"errors"
	"testing"
)

func TestDirectiveError_UnwrapsToSentinel(t *testing.T) {
	err := NewDirectiveError("tld:", "empty value")
	if !errors.Is(err, ErrMalformedDirective) {
		t.Fatalf("expected ErrMalformedDirective, got %v", err)
	}
	want := "malformed directive: tld: (empty value)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
