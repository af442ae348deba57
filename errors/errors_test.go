package errors

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/terramodulus/ferricia"
)

func TestErrorString(t *testing.T) {
	err := InvalidHandle(ferricia.SubsystemPhysics, 0xdead)
	s := err.Error()
	if !strings.Contains(s, "physics") {
		t.Fatalf("expected subsystem in message, got %q", s)
	}
	if !strings.Contains(s, "invalid_handle") {
		t.Fatalf("expected code in message, got %q", s)
	}
}

func TestExternalPreservesCode(t *testing.T) {
	cause := stderrors.New("device lost")
	err := External(ferricia.SubsystemAudio, -37, cause)

	if err.ExternalCode != -37 {
		t.Fatalf("expected external code -37, got %d", err.ExternalCode)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to unwrap")
	}
	if !strings.Contains(err.Error(), "code -37") {
		t.Fatalf("expected native code in message, got %q", err.Error())
	}
}

func TestIsMatchesOnCode(t *testing.T) {
	err := Exhausted(ferricia.SubsystemPhysics, 64)

	if !stderrors.Is(err, &Error{Code: CodeResourceExhausted}) {
		t.Fatal("expected match on code alone")
	}
	if stderrors.Is(err, &Error{Code: CodeInvalidHandle}) {
		t.Fatal("unexpected match on different code")
	}
	if stderrors.Is(err, &Error{Code: CodeResourceExhausted, Subsystem: ferricia.SubsystemAudio}) {
		t.Fatal("unexpected match on different subsystem")
	}
}

func TestCodeOf(t *testing.T) {
	if CodeOf(Timeout("wait")) != CodeTimeout {
		t.Fatal("expected CodeTimeout")
	}
	if CodeOf(stderrors.New("plain")) != 0 {
		t.Fatal("expected zero for non-engine error")
	}
}

func TestFatal(t *testing.T) {
	if Fatal(QueueFull(8)) {
		t.Fatal("queue full must not be fatal")
	}
	if !Fatal(Corrupt("slot table generation underflow", nil)) {
		t.Fatal("corrupt must be fatal")
	}
}
