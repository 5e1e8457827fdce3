package flag

import (
	"testing"

	"github.com/spf13/pflag"
)

func resetFlagState(t *testing.T, args []string) Service {
	t.Helper()
	oldCommandLine := pflag.CommandLine
	pflag.CommandLine = pflag.NewFlagSet("test", pflag.ContinueOnError)
	t.Cleanup(func() {
		pflag.CommandLine = oldCommandLine
	})
	return &service{args: args}
}

func TestGetParsedFlagsAllOptions(t *testing.T) {
	svc := resetFlagState(t, []string{
		"--config", "/src/max/maxbuild.yaml",
		"--program", "overwatch, payload_agent",
		"--arch", "arm",
		"--stage-dir", "/tmp/stage",
		"--groups", "dialout,gpio",
		"-j", "8",
		"--output", "json",
		"--store",
		"--db-path", "/tmp/history.db",
		"--metrics-file", "/tmp/maxbuild.prom",
		"--log-level", "debug",
		"clean", "release", "src/overwatch.PRE",
	})

	flags, err := svc.GetParsedFlags()
	if err != nil {
		t.Fatalf("GetParsedFlags failed: %v", err)
	}

	if flags.ConfigPath != "/src/max/maxbuild.yaml" || flags.Arch != "arm" {
		t.Fatalf("unexpected config/arch: %+v", flags)
	}
	if len(flags.Programs) != 2 || flags.Programs[0] != "overwatch" || flags.Programs[1] != "payload_agent" {
		t.Fatalf("unexpected programs: %v", flags.Programs)
	}
	if flags.StageDir == nil || *flags.StageDir != "/tmp/stage" {
		t.Fatalf("unexpected stage dir: %v", flags.StageDir)
	}
	if len(flags.Groups) != 2 || flags.Groups[1] != "gpio" {
		t.Fatalf("unexpected groups: %v", flags.Groups)
	}
	if flags.Jobs != 8 || flags.Output != "json" || !flags.Store || flags.DBPath != "/tmp/history.db" {
		t.Fatalf("unexpected build/storage flags: %+v", flags)
	}
	if flags.MetricsFile != "/tmp/maxbuild.prom" || flags.LogLevel != "debug" {
		t.Fatalf("unexpected metrics/log flags: %+v", flags)
	}
	if len(flags.Targets) != 3 || flags.Targets[2] != "src/overwatch.PRE" {
		t.Fatalf("unexpected targets: %v", flags.Targets)
	}
}

func TestGetParsedFlagsDefaults(t *testing.T) {
	svc := resetFlagState(t, nil)

	flags, err := svc.GetParsedFlags()
	if err != nil {
		t.Fatalf("GetParsedFlags failed: %v", err)
	}

	if flags.ConfigPath != "maxbuild.yaml" || flags.Output != "table" || flags.LogLevel != "warn" {
		t.Fatalf("unexpected defaults: %+v", flags)
	}
	if flags.StageDir != nil {
		t.Fatalf("stage dir should be unset so STAGEDIR applies, got %q", *flags.StageDir)
	}
	if flags.Groups != nil || flags.Programs != nil {
		t.Fatalf("unexpected groups/programs defaults: %+v", flags)
	}
	if len(flags.Targets) != 1 || flags.Targets[0] != DefaultTarget {
		t.Fatalf("expected default target, got %v", flags.Targets)
	}
}

func TestGetParsedFlagsEmptyStageDirMeansLive(t *testing.T) {
	svc := resetFlagState(t, []string{"--stage-dir=", "install"})

	flags, err := svc.GetParsedFlags()
	if err != nil {
		t.Fatalf("GetParsedFlags failed: %v", err)
	}
	if flags.StageDir == nil || *flags.StageDir != "" {
		t.Fatalf("explicit empty stage dir must be kept, got %v", flags.StageDir)
	}
}

func TestGetParsedFlagsRejectsUnknownOutput(t *testing.T) {
	svc := resetFlagState(t, []string{"--output", "html"})

	if _, err := svc.GetParsedFlags(); err == nil {
		t.Fatalf("expected error for unsupported output format")
	}
}
