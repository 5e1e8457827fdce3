package toolchain

import (
	"context"
	"errors"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"go.uber.org/zap"
)

var (
	// ErrNoSource is returned when a %.PRE target has no matching source file.
	ErrNoSource = errors.New("no source for preprocess target")
	// ErrLintFailed is returned when the static analyzer reports problems.
	ErrLintFailed = errors.New("lint failed")
	// ErrBuildFailed wraps compile and link failures.
	ErrBuildFailed = errors.New("build failed")
)

// PreSuffix marks a preprocess target, as in make's %.PRE rule.
const PreSuffix = ".PRE"

var cxxExtensions = map[string]bool{".cc": true, ".cpp": true, ".cxx": true, ".C": true, ".c++": true}

var sourceExtensions = []string{".c", ".cpp", ".cc", ".cxx", ".C"}

type service struct {
	runner runner.Service
	log    *zap.Logger
}

// Service compiles, links, preprocesses, lints and cleans programs.
type Service interface {
	Build(ctx context.Context, project *model.Project, prog model.Program, mode model.BuildMode, st model.Stamp) (*model.BuildResult, error)
	Preprocess(ctx context.Context, project *model.Project, target string, st model.Stamp) (*model.PreprocessResult, error)
	Lint(ctx context.Context, project *model.Project, prog model.Program) (*model.LintResult, error)
	Clean(project *model.Project, progs []model.Program) (*model.CleanResult, error)
}

type compileUnit struct {
	source  string
	object  string
	depFile string
	version bool
}
