package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mmo-fsw/maxbuild/model"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is the history database used when --db-path is not given.
const DefaultDBPath = "~/.maxbuild/history.db"

// NewService creates a SQLite-backed storage service.
func NewService(dbPath string) (Service, error) {
	resolved, err := resolvePath(dbPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaV1); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &service{db: db, dbPath: resolved}, nil
}

type service struct {
	db     *sql.DB
	dbPath string
}

func resolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		p = DefaultDBPath
	}
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home dir: %w", err)
		}
		if p == "~" {
			p = home
		} else {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Clean(p), nil
}

func errText(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusOK
}

func (s *service) SaveBuild(ctx context.Context, input SaveBuildInput) (string, error) {
	if input.Program == "" {
		return "", errors.New("program is required")
	}
	if input.BuildUUID == "" {
		input.BuildUUID = uuid.NewString()
	}
	var r model.BuildResult
	if input.Result != nil {
		r = *input.Result
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (
			build_uuid, program, mode, arch, builder, build_epoch, git_commit,
			compiled, up_to_date, size_bytes, sha256, duration_ms, status, error, tool_version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, input.BuildUUID, input.Program, string(input.Mode), input.Arch, input.Stamp.Builder, input.Stamp.Epoch, input.Stamp.Commit,
		r.Compiled, r.UpToDate, r.Size, r.SHA256, r.Duration.Milliseconds(), status(input.Err), errText(input.Err), input.Version)
	if err != nil {
		return "", err
	}
	return input.BuildUUID, nil
}

func (s *service) SaveInstall(ctx context.Context, input SaveInstallInput) (id string, err error) {
	rep := input.Report
	if rep == nil || rep.Program == "" {
		return "", errors.New("install report with program is required")
	}
	if input.InstallUUID == "" {
		input.InstallUUID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO installs (install_uuid, program, action, staged, stage_dir, warnings, status, error, tool_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, input.InstallUUID, rep.Program, rep.Action, rep.Staged, rep.StageDir, rep.Warnings(), status(input.Err), errText(input.Err), input.Version)
	if err != nil {
		return "", err
	}
	installID, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	for i, step := range rep.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO install_steps (install_id, position, name, status, detail) VALUES (?, ?, ?, ?, ?)
		`, installID, i, step.Name, string(step.Status), step.Detail)
		if err != nil {
			return "", err
		}
	}
	if err = tx.Commit(); err != nil {
		return "", err
	}
	return input.InstallUUID, nil
}

func (s *service) RecentBuilds(program string, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT build_uuid, program, mode, arch, COALESCE(builder, ''), COALESCE(git_commit, ''),
			compiled, up_to_date, size_bytes, COALESCE(sha256, ''), duration_ms, status,
			COALESCE(error, ''), COALESCE(tool_version, ''), created_at
		FROM builds
	`
	args := []any{}
	if program != "" {
		query += " WHERE program=?"
		args = append(args, program)
	}
	query += " ORDER BY created_at DESC, build_id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BuildRecord{}
	for rows.Next() {
		var b BuildRecord
		if err := rows.Scan(&b.BuildUUID, &b.Program, &b.Mode, &b.Arch, &b.Builder, &b.Commit,
			&b.Compiled, &b.UpToDate, &b.Size, &b.SHA256, &b.DurationMs, &b.Status,
			&b.Error, &b.Version, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *service) RecentInstalls(program string, limit int) ([]InstallRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT install_uuid, program, action, staged, COALESCE(stage_dir, ''), warnings, status,
			COALESCE(error, ''), COALESCE(tool_version, ''), created_at
		FROM installs
	`
	args := []any{}
	if program != "" {
		query += " WHERE program=?"
		args = append(args, program)
	}
	query += " ORDER BY created_at DESC, install_id DESC LIMIT ?"
	args = append(args, limit)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []InstallRecord{}
	for rows.Next() {
		var r InstallRecord
		if err := rows.Scan(&r.InstallUUID, &r.Program, &r.Action, &r.Staged, &r.StageDir, &r.Warnings, &r.Status,
			&r.Error, &r.Version, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *service) InstallSteps(installUUID string) ([]model.Step, error) {
	rows, err := s.db.Query(`
		SELECT st.name, st.status, COALESCE(st.detail, '')
		FROM install_steps st
		JOIN installs i ON i.install_id = st.install_id
		WHERE i.install_uuid=?
		ORDER BY st.position ASC
	`, installUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Step{}
	for rows.Next() {
		var st model.Step
		var status string
		if err := rows.Scan(&st.Name, &status, &st.Detail); err != nil {
			return nil, err
		}
		st.Status = model.StepStatus(status)
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *service) BuildTrend(program string, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	query := `
		SELECT
			program,
			DATE(created_at) as day,
			COUNT(*),
			SUM(CASE WHEN status='failed' THEN 1 ELSE 0 END),
			AVG(duration_ms),
			MAX(size_bytes)
		FROM builds
		WHERE created_at >= DATETIME('now', ?)
	`
	args := []any{fmt.Sprintf("-%d day", days)}
	if program != "" {
		query += " AND program=?"
		args = append(args, program)
	}
	query += " GROUP BY program, DATE(created_at) ORDER BY day ASC, program ASC"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Program, &p.Date, &p.Builds, &p.Failed, &p.AvgDurationMs, &p.MaxSize); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *service) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *service) Reindex(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "REINDEX")
	return err
}

func (s *service) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, errors.New("days must be > 0")
	}
	cutoff := fmt.Sprintf("-%d day", days)
	var total int64
	for _, table := range []string{"builds", "installs"} {
		res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < DATETIME('now', ?)", cutoff)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *service) Close() error {
	return s.db.Close()
}
