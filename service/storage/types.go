package storage

import (
	"context"
	"time"

	"github.com/mmo-fsw/maxbuild/model"
)

// Status values stored with each record.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Service defines persistence and history query operations.
type Service interface {
	SaveBuild(ctx context.Context, input SaveBuildInput) (string, error)
	SaveInstall(ctx context.Context, input SaveInstallInput) (string, error)
	RecentBuilds(program string, limit int) ([]BuildRecord, error)
	RecentInstalls(program string, limit int) ([]InstallRecord, error)
	InstallSteps(installUUID string) ([]model.Step, error)
	BuildTrend(program string, days int) ([]TrendPoint, error)
	Vacuum(ctx context.Context) error
	Reindex(ctx context.Context) error
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	Close() error
}

// SaveBuildInput is the payload saved for a build attempt. Result is nil
// when the build failed before producing one.
type SaveBuildInput struct {
	BuildUUID string
	Program   string
	Mode      model.BuildMode
	Arch      string
	Stamp     model.Stamp
	Result    *model.BuildResult
	Err       error
	Version   string
}

// SaveInstallInput is the payload saved for an install, uninstall or systemd run.
type SaveInstallInput struct {
	InstallUUID string
	Report      *model.InstallReport
	Err         error
	Version     string
}

// BuildRecord is a stored build.
type BuildRecord struct {
	BuildUUID  string    `json:"build_uuid"`
	Program    string    `json:"program"`
	Mode       string    `json:"mode"`
	Arch       string    `json:"arch"`
	Builder    string    `json:"builder"`
	Commit     string    `json:"commit"`
	Compiled   int       `json:"compiled"`
	UpToDate   int       `json:"up_to_date"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Version    string    `json:"tool_version"`
	CreatedAt  time.Time `json:"created_at"`
}

// InstallRecord is a stored install, uninstall or systemd run.
type InstallRecord struct {
	InstallUUID string    `json:"install_uuid"`
	Program     string    `json:"program"`
	Action      string    `json:"action"`
	Staged      bool      `json:"staged"`
	StageDir    string    `json:"stage_dir,omitempty"`
	Warnings    int       `json:"warnings"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	Version     string    `json:"tool_version"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrendPoint is a daily build aggregate for one program.
type TrendPoint struct {
	Program       string  `json:"program"`
	Date          string  `json:"date"`
	Builds        int     `json:"builds"`
	Failed        int     `json:"failed"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	MaxSize       int64   `json:"max_size"`
}
