package stamp

import (
	"context"
	"errors"
	"os/user"
	"testing"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/stretchr/testify/assert"
)

func newTestService(gitOut string, gitErr error, username string) (*service, *runner.Fake) {
	f := runner.NewFake()
	f.Handlers["git"] = func(runner.Command) (string, error) { return gitOut, gitErr }
	return &service{
		runner: f,
		now:    func() time.Time { return time.Unix(1700000000, 0) },
		current: func() (*user.User, error) {
			if username == "" {
				return nil, errors.New("no user")
			}
			return &user.User{Username: username}, nil
		},
		getenv: func(k string) string {
			if k == "LOGNAME" {
				return "fallback"
			}
			return ""
		},
	}, f
}

func TestCaptureTruncatesBuilderAndReadsCommit(t *testing.T) {
	svc, f := newTestService("0123456789abcdef\n", nil, "flightsoftware")

	st := svc.Capture(context.Background(), "/src/max")

	assert.Equal(t, "flightso", st.Builder)
	assert.Equal(t, int64(1700000000), st.Epoch)
	assert.Equal(t, "0123456789abcdef", st.Commit)
	assert.Equal(t, []string{"git rev-parse --short=16 HEAD"}, f.Lines())
	assert.Equal(t, "/src/max", f.Commands[0].Dir)
}

func TestCapturePlaceholderWithoutGit(t *testing.T) {
	svc, _ := newTestService("", errors.New("not a git repository"), "ops")

	st := svc.Capture(context.Background(), "")

	assert.Equal(t, "ops", st.Builder)
	assert.Equal(t, PlaceholderCommit, st.Commit)
}

func TestCaptureRejectsMalformedCommit(t *testing.T) {
	svc, _ := newTestService("0123456789ABCDEF", nil, "ops")
	assert.Equal(t, PlaceholderCommit, svc.Capture(context.Background(), "").Commit)

	svc, _ = newTestService("abc123", nil, "ops")
	assert.Equal(t, PlaceholderCommit, svc.Capture(context.Background(), "").Commit)
}

func TestCaptureBuilderFallbacks(t *testing.T) {
	svc, _ := newTestService("", errors.New("x"), "")
	assert.Equal(t, "fallback", svc.Capture(context.Background(), "").Builder)

	svc, _ = newTestService("", errors.New("x"), `CORP\administrator`)
	assert.Equal(t, "administ", svc.Capture(context.Background(), "").Builder)
}

func TestDefines(t *testing.T) {
	st := model.Stamp{Builder: "ops", Epoch: 42, Commit: "00000000deadbeef"}

	assert.Equal(t, []string{
		`-DBUILD_USER="ops"`,
		"-DBUILD_EPOCH=42",
		`-DBUILD_COMMIT="00000000deadbeef"`,
		"-DBUILD_COMMIT_HEX=0x00000000deadbeefULL",
		"-DRELEASE_BUILD",
	}, Defines(st, model.ModeRelease))
	assert.Equal(t, "-DDEBUG_BUILD", Defines(st, model.ModeDebug)[4])
	assert.Equal(t, "00000000", Short(st))
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "jürgenmü", Truncate("jürgenmüller", 8))
	assert.Equal(t, "ops", Truncate("ops", 8))
}
