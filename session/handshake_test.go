package session

import (
	"testing"

	"github.com/momentics/ada-trace/api"
)

func TestResolve_PayloadDecimalAndHex(t *testing.T) {
	id, err := Resolve("host_pid=4242;session_id=1a2b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.HostPID != 4242 {
		t.Errorf("HostPID = %d, want 4242", id.HostPID)
	}
	if id.SessionID != 0x1a2b {
		t.Errorf("SessionID = %x, want 1a2b", id.SessionID)
	}
}

func TestResolve_AliasKeysAndAltSeparators(t *testing.T) {
	id, err := Resolve("pid=7\nsid=ff,foo=bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.HostPID != 7 {
		t.Errorf("HostPID = %d, want 7", id.HostPID)
	}
	if id.SessionID != 0xff {
		t.Errorf("SessionID = %x, want ff", id.SessionID)
	}
}

func TestResolve_EnvFallback(t *testing.T) {
	t.Setenv(EnvHostPID, "99")
	t.Setenv(EnvSessionID, "64")
	id, err := Resolve("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.HostPID != 99 {
		t.Errorf("HostPID = %d, want 99", id.HostPID)
	}
	if id.SessionID != 0x64 {
		t.Errorf("SessionID = %x, want 64", id.SessionID)
	}
}

func TestResolve_MissingBoth(t *testing.T) {
	_, err := Resolve("garbage")
	if err != api.ErrInvalidHandshake {
		t.Fatalf("err = %v, want ErrInvalidHandshake", err)
	}
}
