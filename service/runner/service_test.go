package runner

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestOutputCapturesStdout(t *testing.T) {
	svc := NewService(nil)
	out, err := svc.Output(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunFailureCarriesOutput(t *testing.T) {
	svc := NewService(nil)
	err := svc.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo boom >&2; exit 3"}})
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Output != "boom" {
		t.Fatalf("expected captured output, got %v", err)
	}
}

func TestRunMissingTool(t *testing.T) {
	svc := NewService(nil)
	err := svc.Run(context.Background(), Command{Name: "maxbuild-no-such-tool"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	if _, err := svc.LookPath("maxbuild-no-such-tool"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound from LookPath, got %v", err)
	}
}

func TestCommandString(t *testing.T) {
	cmd := Command{Name: "gcc", Args: []string{"-DBUILD_USER=\"ops\"", "-c", "a b.c"}}
	got := cmd.String()
	want := `gcc "-DBUILD_USER=\"ops\"" -c "a b.c"`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestFakeRecordsAndDispatches(t *testing.T) {
	f := NewFake()
	f.Handlers["git"] = func(Command) (string, error) { return "0123456789abcdef\n", nil }

	out, err := f.Output(context.Background(), Command{Name: "git", Args: []string{"rev-parse"}})
	if err != nil || out != "0123456789abcdef\n" {
		t.Fatalf("unexpected fake output %q, %v", out, err)
	}
	if err := f.Run(context.Background(), Command{Name: "systemctl", Args: []string{"daemon-reload"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Called("systemctl daemon-reload") || f.Called("useradd") {
		t.Fatalf("unexpected recorded commands: %v", f.Lines())
	}
}
