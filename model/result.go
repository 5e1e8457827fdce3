package model

import "time"

// Stamp is the build provenance baked into every compiled binary.
type Stamp struct {
	Builder string
	Epoch   int64
	Commit  string
}

// BuildResult summarizes one program build.
type BuildResult struct {
	Program    string        `json:"program"`
	Mode       BuildMode     `json:"mode"`
	Arch       string        `json:"arch"`
	Executable string        `json:"executable"`
	Compiled   int           `json:"compiled"`
	UpToDate   int           `json:"up_to_date"`
	Linked     bool          `json:"linked"`
	Size       int64         `json:"size"`
	SHA256     string        `json:"sha256"`
	Stamp      Stamp         `json:"stamp"`
	Duration   time.Duration `json:"duration"`
}

// LintResult is the outcome of running the static analyzer for one program.
type LintResult struct {
	Program string `json:"program"`
	Files   int    `json:"files"`
	Passed  bool   `json:"passed"`
	Output  string `json:"output,omitempty"`
}

// DistResult lists the bundles written for one program.
type DistResult struct {
	Program       string `json:"program"`
	RuntimeBundle string `json:"runtime_bundle"`
	RuntimeSize   int64  `json:"runtime_size"`
	SourceBundle  string `json:"source_bundle"`
	SourceSize    int64  `json:"source_size"`
}

// PreprocessResult records one %.PRE target.
type PreprocessResult struct {
	Source string `json:"source"`
	Output string `json:"output"`
}

// CleanResult lists the paths removed by the clean target.
type CleanResult struct {
	Removed []string `json:"removed"`
}

// StepStatus is the outcome of a single install or uninstall step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepWarning StepStatus = "warning"
)

// Step is one recorded action of an install or uninstall.
type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// InstallReport is the ordered log of an install, uninstall or systemd target.
type InstallReport struct {
	Program  string `json:"program"`
	Action   string `json:"action"`
	Staged   bool   `json:"staged"`
	StageDir string `json:"stage_dir,omitempty"`
	Steps    []Step `json:"steps"`
}

// Add appends a step to the report.
func (r *InstallReport) Add(name string, status StepStatus, detail string) {
	r.Steps = append(r.Steps, Step{Name: name, Status: status, Detail: detail})
}

// Warnings counts best-effort steps that failed.
func (r *InstallReport) Warnings() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepWarning {
			n++
		}
	}
	return n
}
