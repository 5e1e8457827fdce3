package stamp

import (
	"context"
	"os/user"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
)

const (
	// BuilderWidth is how many characters of the builder name are kept.
	BuilderWidth = 8
	// CommitWidth is the number of hex digits of the stamped commit.
	CommitWidth = 16
	// PlaceholderCommit is stamped when the tree is not a git checkout.
	PlaceholderCommit = "0000000000000000"
)

type service struct {
	runner  runner.Service
	now     func() time.Time
	current func() (*user.User, error)
	getenv  func(string) string
}

// Service produces build provenance stamps.
type Service interface {
	Capture(ctx context.Context, dir string) model.Stamp
}
