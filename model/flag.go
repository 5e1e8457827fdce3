package model

// Flags represents the command line flags.
type Flags struct {
	ConfigPath  string
	Programs    []string
	Arch        string
	StageDir    *string
	Groups      []string
	Jobs        int
	Output      string
	Store       bool
	DBPath      string
	MetricsFile string
	LogLevel    string
	Version     bool
	Targets     []string
}
