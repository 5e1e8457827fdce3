// Package stamp captures who built a binary, when, and from which commit.
package stamp

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
)

// NewService creates a stamp service that asks git for the commit.
func NewService(r runner.Service) Service {
	return &service{
		runner:  r,
		now:     time.Now,
		current: user.Current,
		getenv:  os.Getenv,
	}
}

func (s *service) Capture(ctx context.Context, dir string) model.Stamp {
	return model.Stamp{
		Builder: Truncate(s.builder(), BuilderWidth),
		Epoch:   s.now().Unix(),
		Commit:  s.commit(ctx, dir),
	}
}

func (s *service) builder() string {
	if u, err := s.current(); err == nil && strings.TrimSpace(u.Username) != "" {
		name := u.Username
		// Domain accounts come back as DOMAIN\name.
		if i := strings.LastIndex(name, `\`); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	for _, k := range []string{"USER", "LOGNAME"} {
		if v := strings.TrimSpace(s.getenv(k)); v != "" {
			return v
		}
	}
	return "unknown"
}

func (s *service) commit(ctx context.Context, dir string) string {
	out, err := s.runner.Output(ctx, runner.Command{
		Name: "git",
		Args: []string{"rev-parse", fmt.Sprintf("--short=%d", CommitWidth), "HEAD"},
		Dir:  dir,
	})
	if err != nil {
		return PlaceholderCommit
	}
	c := strings.TrimSpace(out)
	if !IsCommit(c) {
		return PlaceholderCommit
	}
	return c
}

// IsCommit reports whether c is exactly CommitWidth lowercase hex digits.
func IsCommit(c string) bool {
	if len(c) != CommitWidth {
		return false
	}
	for _, r := range c {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// Truncate keeps at most n runes of s.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Defines renders the stamp as preprocessor defines for the given mode.
func Defines(st model.Stamp, mode model.BuildMode) []string {
	defs := []string{
		fmt.Sprintf(`-DBUILD_USER="%s"`, st.Builder),
		fmt.Sprintf("-DBUILD_EPOCH=%d", st.Epoch),
		fmt.Sprintf(`-DBUILD_COMMIT="%s"`, st.Commit),
		fmt.Sprintf("-DBUILD_COMMIT_HEX=0x%sULL", st.Commit),
	}
	if mode == model.ModeDebug {
		return append(defs, "-DDEBUG_BUILD")
	}
	return append(defs, "-DRELEASE_BUILD")
}

// Short is the eight-digit commit prefix used in bundle names.
func Short(st model.Stamp) string {
	return Truncate(st.Commit, 8)
}
