package api_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/momentics/hioload-tcp/api"
)

func TestBindErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("open: %w", &api.BindError{Port: 80, Err: syscall.EACCES})
	if !api.IsBindError(err) {
		t.Fatal("wrapped BindError not detected")
	}
	if !errors.Is(err, syscall.EACCES) {
		t.Fatal("cause lost through BindError")
	}
	if got := err.Error(); got != "open: bind port 80: permission denied" {
		t.Fatalf("Error() = %q", got)
	}
	if api.IsBindError(api.ErrInvalidArgument) {
		t.Fatal("plain error reported as BindError")
	}
}

func TestInterestString(t *testing.T) {
	if api.InterestAccept.String() == api.InterestRead.String() {
		t.Fatal("interests share a name")
	}
}
