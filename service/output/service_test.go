package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/publish"
	"github.com/mmo-fsw/maxbuild/service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBuild() *model.BuildResult {
	return &model.BuildResult{
		Program:  "overwatch",
		Mode:     model.ModeRelease,
		Arch:     "arm",
		Compiled: 2,
		UpToDate: 4,
		Linked:   true,
		Size:     48213,
		Stamp:    model.Stamp{Commit: "0123456789abcdef"},
		Duration: 1234 * time.Millisecond,
	}
}

func TestBuildsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewServiceWithWriter("table", &buf).Builds([]*model.BuildResult{sampleBuild()}))

	out := buf.String()
	assert.Contains(t, out, "overwatch")
	assert.Contains(t, out, "48 kB")
	assert.Contains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "1.234s")
}

func TestBuildsJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewServiceWithWriter("json", &buf).Builds([]*model.BuildResult{sampleBuild()}))

	var got []model.BuildResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "overwatch", got[0].Program)
	assert.Equal(t, model.ModeRelease, got[0].Mode)
}

func TestInstallsTable(t *testing.T) {
	rep := &model.InstallReport{Program: "MAX", Action: "install", Staged: true, StageDir: "/tmp/stage"}
	rep.Add("release build", model.StepOK, "release/MAX")
	rep.Add("account", model.StepSkipped, "staged")

	var buf bytes.Buffer
	require.NoError(t, NewServiceWithWriter("table", &buf).Installs([]*model.InstallReport{rep}))
	out := buf.String()
	assert.Contains(t, out, "Install MAX (staged to /tmp/stage)")
	assert.Contains(t, out, "release build")
	assert.Contains(t, out, "account")
}

func TestLintShowsToolOutputOnFailure(t *testing.T) {
	var buf bytes.Buffer
	results := []*model.LintResult{
		{Program: "overwatch", Files: 3, Passed: true},
		{Program: "payload_agent", Files: 5, Output: "agent.cpp:12: warning: shadowed variable"},
	}
	require.NoError(t, NewServiceWithWriter("table", &buf).Lint(results))
	out := buf.String()
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "agent.cpp:12: warning: shadowed variable")
}

func TestCleanAndHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	svc := NewServiceWithWriter("table", &buf)
	require.NoError(t, svc.Clean(&model.CleanResult{}))
	require.NoError(t, svc.BuildHistory(nil))
	require.NoError(t, svc.InstallHistory(nil))
	assert.Equal(t, "Nothing to clean\nNo builds recorded\nNo installs recorded\n", buf.String())
}

func TestHistoryTables(t *testing.T) {
	var buf bytes.Buffer
	svc := NewServiceWithWriter("table", &buf)
	require.NoError(t, svc.BuildHistory([]storage.BuildRecord{{Program: "overwatch", Mode: "debug", Status: storage.StatusFailed, CreatedAt: time.Now().Add(-2 * time.Hour)}}))
	require.NoError(t, svc.InstallHistory([]storage.InstallRecord{{Program: "MAX", Action: "uninstall", Warnings: 2, Status: storage.StatusOK, CreatedAt: time.Now()}}))
	require.NoError(t, svc.Trend([]storage.TrendPoint{{Program: "overwatch", Date: "2026-10-17", Builds: 4, Failed: 1, AvgDurationMs: 2500}}))

	out := buf.String()
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "uninstall")
	assert.Contains(t, out, "2026-10-17")
	assert.Contains(t, out, "2.5s")
}

func TestPublishTable(t *testing.T) {
	var buf bytes.Buffer
	res := &publish.Result{
		Bucket:   "fsw-artifacts",
		Identity: "arn:aws:iam::111111111111:user/release-bot",
		Uploads:  []publish.Upload{{Program: "overwatch", Key: "max/overwatch/overwatch-01234567-src.tar.xz", Size: 2048, SHA256: "abcdef0123456789"}},
	}
	require.NoError(t, NewServiceWithWriter("table", &buf).Publish(res))
	out := buf.String()
	assert.Contains(t, out, "s3://fsw-artifacts")
	assert.Contains(t, out, "abcdef012345")
	assert.NotContains(t, out, "abcdef0123456789")
}

func TestProjectDump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewServiceWithWriter("table", &buf).Project(&model.Project{}, []byte("build:\n  arch: x86\n")))
	assert.Equal(t, "build:\n  arch: x86\n", buf.String())
}
