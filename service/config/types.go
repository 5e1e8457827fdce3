package config

import (
	"errors"

	"github.com/mmo-fsw/maxbuild/model"
)

// ErrInvalidConfig wraps every manifest loading or validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrUnknownProgram is returned when a selected program is not in the manifest.
var ErrUnknownProgram = errors.New("unknown program")

type service struct {
	getenv func(string) string
	numCPU func() int
}

// Service loads and validates the project manifest.
type Service interface {
	Load(flags model.Flags) (*model.Project, error)
	Select(project *model.Project, names []string) ([]model.Program, error)
	Dump(project *model.Project) ([]byte, error)
}
