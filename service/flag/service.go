// Package flag parses the maxbuild command line.
package flag

import (
	"fmt"
	"os"
	"strings"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/spf13/pflag"
)

// DefaultTarget runs when no target is named, like make's first rule.
const DefaultTarget = "all"

// NewService creates a new flag service reading os.Args.
func NewService() Service {
	return &service{args: os.Args[1:]}
}

// GetParsedFlags parses and returns the command-line flags.
func (s *service) GetParsedFlags() (model.Flags, error) {
	fs := pflag.CommandLine
	configPath := fs.StringP("config", "c", "maxbuild.yaml", "Path to the project manifest")
	programs := fs.StringSliceP("program", "p", nil, "Programs to operate on (default all in manifest)")
	arch := fs.String("arch", "", "Target architecture: x86 or arm (overrides ARCH)")
	stageDir := fs.String("stage-dir", "", "Staged install root; empty means live install (overrides STAGEDIR)")
	groups := fs.StringSlice("groups", nil, "Supplementary groups for the service account (overrides GROUPS)")
	jobs := fs.IntP("jobs", "j", 0, "Parallel compile units (default from manifest or CPU count)")
	output := fs.StringP("output", "o", "table", "Output format (table or json)")
	store := fs.Bool("store", false, "Record builds and installs in the local SQLite history")
	dbPath := fs.String("db-path", "", "Custom SQLite database path (default ~/.maxbuild/history.db)")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus textfile metrics to this path")
	logLevel := fs.String("log-level", "warn", "Log level (debug, info, warn, error)")
	version := fs.BoolP("version", "v", false, "Show version information")

	if err := fs.Parse(s.args); err != nil {
		return model.Flags{}, err
	}

	switch *output {
	case "table", "json":
	default:
		return model.Flags{}, fmt.Errorf("unsupported output format %q", *output)
	}

	flags := model.Flags{
		ConfigPath:  *configPath,
		Programs:    trimAll(*programs),
		Arch:        strings.TrimSpace(*arch),
		Groups:      trimAll(*groups),
		Jobs:        *jobs,
		Output:      *output,
		Store:       *store,
		DBPath:      *dbPath,
		MetricsFile: *metricsFile,
		LogLevel:    *logLevel,
		Version:     *version,
		Targets:     fs.Args(),
	}
	if fs.Changed("stage-dir") {
		flags.StageDir = stageDir
	}
	if !fs.Changed("groups") {
		flags.Groups = nil
	}
	if len(flags.Targets) == 0 {
		flags.Targets = []string{DefaultTarget}
	}

	return flags, nil
}

func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
