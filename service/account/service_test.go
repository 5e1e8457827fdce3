package account

import (
	"context"
	"errors"
	"os/user"
	"testing"

	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(users, groups map[string]bool) (*service, *runner.Fake) {
	fake := runner.NewFake()
	return &service{
		runner: fake,
		lookupUser: func(name string) (*user.User, error) {
			if users[name] {
				return &user.User{Username: name}, nil
			}
			return nil, user.UnknownUserError(name)
		},
		lookupGroup: func(name string) (*user.Group, error) {
			if groups[name] {
				return &user.Group{Name: name}, nil
			}
			return nil, user.UnknownGroupError(name)
		},
	}, fake
}

func TestEnsureGroup(t *testing.T) {
	ctx := context.Background()
	svc, fake := newTestService(nil, map[string]bool{"payload": true})

	got, err := svc.EnsureGroup(ctx, "payload")
	require.NoError(t, err)
	assert.Equal(t, Exists, got)
	assert.Empty(t, fake.Commands)

	got, err = svc.EnsureGroup(ctx, "overwatch")
	require.NoError(t, err)
	assert.Equal(t, Created, got)
	assert.Equal(t, []string{"groupadd --system overwatch"}, fake.Lines())
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	spec := UserSpec{Name: "overwatch", Group: "overwatch", Home: "/opt/overwatch", Shell: "/usr/sbin/nologin", Groups: []string{"dialout", "gpio"}}

	svc, fake := newTestService(nil, nil)
	got, err := svc.EnsureUser(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, Created, got)
	assert.Equal(t, []string{
		"useradd --system --gid overwatch --home-dir /opt/overwatch --no-create-home --shell /usr/sbin/nologin --groups dialout,gpio overwatch",
	}, fake.Lines())

	svc, fake = newTestService(map[string]bool{"overwatch": true}, nil)
	got, err = svc.EnsureUser(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, Updated, got)
	assert.Equal(t, []string{"usermod --append --groups dialout,gpio overwatch"}, fake.Lines())

	spec.Groups = nil
	fake.Commands = nil
	got, err = svc.EnsureUser(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, Exists, got)
	assert.Empty(t, fake.Commands)
}

func TestEnsureUserWithoutGroups(t *testing.T) {
	svc, fake := newTestService(nil, nil)
	_, err := svc.EnsureUser(context.Background(), UserSpec{Name: "max", Group: "max", Home: "/opt/max", Shell: "/bin/false"})
	require.NoError(t, err)
	assert.Equal(t, []string{"useradd --system --gid max --home-dir /opt/max --no-create-home --shell /bin/false max"}, fake.Lines())
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, fake := newTestService(map[string]bool{"max": true}, map[string]bool{"max": true})

	removed, err := svc.RemoveUser(ctx, "max")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RemoveGroup(ctx, "max")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"userdel max", "groupdel max"}, fake.Lines())

	svc, fake = newTestService(nil, nil)
	removed, err = svc.RemoveUser(ctx, "max")
	require.NoError(t, err)
	assert.False(t, removed)
	removed, err = svc.RemoveGroup(ctx, "max")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Empty(t, fake.Commands)
}

func TestLookupFailure(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	svc.lookupUser = func(string) (*user.User, error) { return nil, errors.New("nss down") }

	_, err := svc.EnsureUser(context.Background(), UserSpec{Name: "max"})
	assert.ErrorContains(t, err, "nss down")
}

func TestCommandFailure(t *testing.T) {
	svc, fake := newTestService(nil, nil)
	fake.Handlers["groupadd"] = func(runner.Command) (string, error) {
		return "groupadd: permission denied", &runner.ExitError{Err: errors.New("exit status 10")}
	}

	_, err := svc.EnsureGroup(context.Background(), "max")
	assert.ErrorIs(t, err, runner.ErrCommandFailed)
}
