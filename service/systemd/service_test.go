package systemd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overwatch() model.Program {
	return model.Program{
		Name:         "overwatch",
		User:         "overwatch",
		Group:        "flight",
		InstallDir:   "/opt/overwatch",
		Capabilities: []string{"cap_sys_nice"},
		Service: &model.ServiceUnit{
			Description: "MAX overwatch supervisor",
			Args:        []string{"--config", "/opt/overwatch/etc/overwatch.conf"},
			After:       []string{"network.target", "payload_agent.service"},
			Restart:     "on-failure",
			RestartSec:  5,
			Environment: []string{"OW_LOG=info"},
			WantedBy:    "multi-user.target",
		},
	}
}

func TestRender(t *testing.T) {
	data, err := NewService(runner.NewFake()).Render(overwatch())
	require.NoError(t, err)

	want := `[Unit]
Description=MAX overwatch supervisor
After=network.target payload_agent.service

[Service]
Type=simple
User=overwatch
Group=flight
WorkingDirectory=/opt/overwatch
ExecStart=/opt/overwatch/bin/overwatch --config /opt/overwatch/etc/overwatch.conf
Restart=on-failure
RestartSec=5
Environment="OW_LOG=info"
AmbientCapabilities=CAP_SYS_NICE

[Install]
WantedBy=multi-user.target
`
	assert.Equal(t, want, string(data))
}

func TestRenderQuotesExecStartWords(t *testing.T) {
	prog := overwatch()
	prog.InstallDir = "/opt/flight sw/overwatch"
	prog.Service.Args = []string{"--label", "camera 1", "--duty", "50%", "--home", "$HOME"}

	data, err := NewService(runner.NewFake()).Render(prog)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		"ExecStart=\"/opt/flight sw/overwatch/bin/overwatch\" --label \"camera 1\" --duty 50%% --home $$HOME\n")
}

func TestRenderWithoutService(t *testing.T) {
	prog := overwatch()
	prog.Service = nil
	_, err := NewService(runner.NewFake()).Render(prog)
	assert.ErrorIs(t, err, ErrNoService)
}

func TestWriteAndRemoveUnit(t *testing.T) {
	stage := t.TempDir()
	project := &model.Project{Install: model.InstallConfig{StageDir: stage, SystemdDir: "/etc/systemd/system"}}
	svc := NewService(runner.NewFake())

	path, err := svc.WriteUnit(project, overwatch())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stage, "etc/systemd/system/overwatch.service"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(UnitMode), info.Mode().Perm())

	removed, err := svc.RemoveUnit(project, overwatch())
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RemoveUnit(project, overwatch())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSystemctlSequence(t *testing.T) {
	fake := runner.NewFake()
	svc := NewService(fake)
	ctx := context.Background()

	require.NoError(t, svc.Activate(ctx, overwatch()))
	require.NoError(t, svc.Stop(ctx, overwatch()))
	require.NoError(t, svc.Disable(ctx, overwatch()))
	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable overwatch.service",
		"systemctl restart overwatch.service",
		"systemctl stop overwatch.service",
		"systemctl disable overwatch.service",
	}, fake.Lines())
}
