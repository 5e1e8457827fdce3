package flag

import "github.com/mmo-fsw/maxbuild/model"

type service struct {
	args []string
}

// Service is the interface for CLI flag service.
type Service interface {
	GetParsedFlags() (model.Flags, error)
}
