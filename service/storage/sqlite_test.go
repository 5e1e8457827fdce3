package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
)

func newTestStorage(t *testing.T) Service {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	svc, err := NewService(dbPath)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

var testStamp = model.Stamp{Builder: "flightso", Epoch: 1700000000, Commit: "0123456789abcdef"}

func TestSaveBuildAndRecent(t *testing.T) {
	svc := newTestStorage(t)
	ctx := context.Background()

	id, err := svc.SaveBuild(ctx, SaveBuildInput{
		Program: "overwatch",
		Mode:    model.ModeRelease,
		Arch:    "arm",
		Stamp:   testStamp,
		Result: &model.BuildResult{
			Compiled: 3,
			UpToDate: 1,
			Size:     48213,
			SHA256:   "abc",
			Duration: 1500 * time.Millisecond,
		},
		Version: "1.2.0",
	})
	if err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected uuid build id, got %q", id)
	}

	_, err = svc.SaveBuild(ctx, SaveBuildInput{
		BuildUUID: "failed-1",
		Program:   "payload_agent",
		Mode:      model.ModeDebug,
		Arch:      "x86",
		Stamp:     testStamp,
		Err:       errors.New("link failed"),
	})
	if err != nil {
		t.Fatalf("SaveBuild (failed build) failed: %v", err)
	}

	all, err := svc.RecentBuilds("", 10)
	if err != nil {
		t.Fatalf("RecentBuilds failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(all))
	}
	if all[0].BuildUUID != "failed-1" || all[0].Status != StatusFailed || all[0].Error != "link failed" {
		t.Fatalf("unexpected newest build: %+v", all[0])
	}

	ow, err := svc.RecentBuilds("overwatch", 10)
	if err != nil {
		t.Fatalf("RecentBuilds (filtered) failed: %v", err)
	}
	if len(ow) != 1 {
		t.Fatalf("expected 1 overwatch build, got %d", len(ow))
	}
	b := ow[0]
	if b.Compiled != 3 || b.Size != 48213 || b.DurationMs != 1500 || b.Commit != testStamp.Commit || b.Status != StatusOK {
		t.Fatalf("unexpected build record: %+v", b)
	}
	if b.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestSaveBuildRequiresProgram(t *testing.T) {
	svc := newTestStorage(t)
	if _, err := svc.SaveBuild(context.Background(), SaveBuildInput{}); err == nil {
		t.Fatalf("expected error for missing program")
	}
}

func TestSaveInstallWithSteps(t *testing.T) {
	svc := newTestStorage(t)
	ctx := context.Background()

	rep := &model.InstallReport{Program: "MAX", Action: "install", Staged: true, StageDir: "/tmp/stage"}
	rep.Add("release build", model.StepOK, "release/MAX")
	rep.Add("account", model.StepSkipped, "staged")
	rep.Add("stop service", model.StepWarning, "not loaded")

	id, err := svc.SaveInstall(ctx, SaveInstallInput{Report: rep, Version: "1.2.0"})
	if err != nil {
		t.Fatalf("SaveInstall failed: %v", err)
	}

	recent, err := svc.RecentInstalls("MAX", 5)
	if err != nil {
		t.Fatalf("RecentInstalls failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 install, got %d", len(recent))
	}
	if !recent[0].Staged || recent[0].Warnings != 1 || recent[0].StageDir != "/tmp/stage" {
		t.Fatalf("unexpected install record: %+v", recent[0])
	}

	steps, err := svc.InstallSteps(id)
	if err != nil {
		t.Fatalf("InstallSteps failed: %v", err)
	}
	if len(steps) != 3 || steps[2].Status != model.StepWarning || steps[0].Name != "release build" {
		t.Fatalf("unexpected steps: %+v", steps)
	}

	if _, err := svc.SaveInstall(ctx, SaveInstallInput{}); err == nil {
		t.Fatalf("expected error for missing report")
	}
}

func TestBuildTrend(t *testing.T) {
	svc := newTestStorage(t)
	ctx := context.Background()

	for _, in := range []SaveBuildInput{
		{Program: "overwatch", Mode: model.ModeRelease, Arch: "x86", Result: &model.BuildResult{Size: 100, Duration: time.Second}},
		{Program: "overwatch", Mode: model.ModeDebug, Arch: "x86", Result: &model.BuildResult{Size: 300, Duration: 3 * time.Second}},
		{Program: "overwatch", Mode: model.ModeRelease, Arch: "x86", Err: errors.New("boom")},
		{Program: "payload_agent", Mode: model.ModeRelease, Arch: "x86", Result: &model.BuildResult{Size: 50}},
	} {
		if _, err := svc.SaveBuild(ctx, in); err != nil {
			t.Fatalf("SaveBuild failed: %v", err)
		}
	}

	points, err := svc.BuildTrend("overwatch", 7)
	if err != nil {
		t.Fatalf("BuildTrend failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 trend point, got %d", len(points))
	}
	p := points[0]
	if p.Builds != 3 || p.Failed != 1 || p.MaxSize != 300 {
		t.Fatalf("unexpected trend point: %+v", p)
	}

	all, err := svc.BuildTrend("", 7)
	if err != nil {
		t.Fatalf("BuildTrend (all) failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 trend points across programs, got %d", len(all))
	}
}

func TestPurgeOlderThan(t *testing.T) {
	svc := newTestStorage(t)
	ctx := context.Background()

	if _, err := svc.SaveBuild(ctx, SaveBuildInput{BuildUUID: "old", Program: "overwatch", Mode: model.ModeRelease, Arch: "x86"}); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}
	if _, err := svc.SaveBuild(ctx, SaveBuildInput{BuildUUID: "new", Program: "overwatch", Mode: model.ModeRelease, Arch: "x86"}); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}
	rep := &model.InstallReport{Program: "overwatch", Action: "install"}
	rep.Add("release build", model.StepOK, "")
	installID, err := svc.SaveInstall(ctx, SaveInstallInput{Report: rep})
	if err != nil {
		t.Fatalf("SaveInstall failed: %v", err)
	}

	db := svc.(*service).db
	if _, err := db.Exec(`UPDATE builds SET created_at=DATETIME('now', '-40 day') WHERE build_uuid='old'`); err != nil {
		t.Fatalf("backdate build failed: %v", err)
	}
	if _, err := db.Exec(`UPDATE installs SET created_at=DATETIME('now', '-40 day')`); err != nil {
		t.Fatalf("backdate install failed: %v", err)
	}

	n, err := svc.PurgeOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged rows, got %d", n)
	}
	builds, err := svc.RecentBuilds("", 10)
	if err != nil {
		t.Fatalf("RecentBuilds failed: %v", err)
	}
	if len(builds) != 1 || builds[0].BuildUUID != "new" {
		t.Fatalf("unexpected remaining builds: %+v", builds)
	}
	steps, err := svc.InstallSteps(installID)
	if err != nil {
		t.Fatalf("InstallSteps failed: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("expected steps to cascade, got %+v", steps)
	}
}

func TestMaintenanceCommands(t *testing.T) {
	svc := newTestStorage(t)
	ctx := context.Background()

	if err := svc.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum failed: %v", err)
	}
	if err := svc.Reindex(ctx); err != nil {
		t.Fatalf("Reindex failed: %v", err)
	}
	if _, err := svc.PurgeOlderThan(ctx, 0); err == nil {
		t.Fatalf("expected error for invalid purge days")
	}
}

func TestResolvePathDefault(t *testing.T) {
	t.Setenv("HOME", "/home/ops")
	got, err := resolvePath("")
	if err != nil {
		t.Fatalf("resolvePath failed: %v", err)
	}
	if got != "/home/ops/.maxbuild/history.db" {
		t.Fatalf("unexpected default path: %s", got)
	}
}
