// Package output renders results to the console as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/publish"
	"github.com/mmo-fsw/maxbuild/service/storage"
)

// NewService creates a new output service with the specified format
func NewService(format string) Service {
	return NewServiceWithWriter(format, os.Stdout)
}

// NewServiceWithWriter renders to w instead of stdout.
func NewServiceWithWriter(format string, w io.Writer) Service {
	f := FormatTable
	if format == string(FormatJSON) {
		f = FormatJSON
	}
	return &service{format: f, out: w}
}

func (s *service) json(v any) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *service) table(title string, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(s.out)
	if title != "" {
		t.SetTitle(title)
	}
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return t
}

func size(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func stepStatus(st model.StepStatus) string {
	switch st {
	case model.StepOK:
		return text.FgGreen.Sprint(string(st))
	case model.StepWarning:
		return text.FgYellow.Sprint(string(st))
	default:
		return text.FgHiBlack.Sprint(string(st))
	}
}

func buildStatus(status string) string {
	if status == storage.StatusFailed {
		return text.FgRed.Sprint(status)
	}
	return text.FgGreen.Sprint(status)
}

func (s *service) Builds(results []*model.BuildResult) error {
	if s.format == FormatJSON {
		return s.json(results)
	}
	t := s.table("Build", table.Row{"Program", "Mode", "Arch", "Compiled", "Up to date", "Linked", "Size", "Commit", "Time"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Program, r.Mode, r.Arch, r.Compiled, r.UpToDate, yesNo(r.Linked), size(r.Size), r.Stamp.Commit, r.Duration.Round(time.Millisecond)})
	}
	t.Render()
	return nil
}

func (s *service) Lint(results []*model.LintResult) error {
	if s.format == FormatJSON {
		return s.json(results)
	}
	t := s.table("Lint", table.Row{"Program", "Files", "Result"})
	for _, r := range results {
		result := text.FgGreen.Sprint("passed")
		if !r.Passed {
			result = text.FgRed.Sprint("failed")
		}
		t.AppendRow(table.Row{r.Program, r.Files, result})
	}
	t.Render()
	for _, r := range results {
		if !r.Passed && r.Output != "" {
			fmt.Fprintf(s.out, "\n%s:\n%s\n", r.Program, r.Output)
		}
	}
	return nil
}

func (s *service) Dist(results []*model.DistResult) error {
	if s.format == FormatJSON {
		return s.json(results)
	}
	t := s.table("Dist", table.Row{"Program", "Bundle", "Size"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Program, r.RuntimeBundle, size(r.RuntimeSize)})
		t.AppendRow(table.Row{r.Program, r.SourceBundle, size(r.SourceSize)})
	}
	t.Render()
	return nil
}

func (s *service) Preprocess(results []*model.PreprocessResult) error {
	if s.format == FormatJSON {
		return s.json(results)
	}
	t := s.table("Preprocess", table.Row{"Source", "Output"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Source, r.Output})
	}
	t.Render()
	return nil
}

func (s *service) Clean(result *model.CleanResult) error {
	if s.format == FormatJSON {
		return s.json(result)
	}
	if result == nil || len(result.Removed) == 0 {
		fmt.Fprintln(s.out, "Nothing to clean")
		return nil
	}
	t := s.table("Clean", table.Row{"Removed"})
	for _, p := range result.Removed {
		t.AppendRow(table.Row{p})
	}
	t.Render()
	return nil
}

func (s *service) Installs(reports []*model.InstallReport) error {
	if s.format == FormatJSON {
		return s.json(reports)
	}
	for _, rep := range reports {
		title := fmt.Sprintf("%s %s", capitalize(rep.Action), rep.Program)
		if rep.Staged {
			title += " (staged to " + rep.StageDir + ")"
		}
		t := s.table(title, table.Row{"#", "Step", "Status", "Detail"})
		for i, st := range rep.Steps {
			t.AppendRow(table.Row{i + 1, st.Name, stepStatus(st.Status), st.Detail})
		}
		t.Render()
	}
	return nil
}

func (s *service) Publish(result *publish.Result) error {
	if s.format == FormatJSON {
		return s.json(result)
	}
	title := "Publish to s3://" + result.Bucket
	if result.Identity != "" {
		title += " as " + result.Identity
	}
	t := s.table(title, table.Row{"Program", "Key", "Size", "SHA-256"})
	for _, u := range result.Uploads {
		t.AppendRow(table.Row{u.Program, u.Key, size(u.Size), u.SHA256[:min(12, len(u.SHA256))]})
	}
	t.Render()
	return nil
}

func (s *service) BuildHistory(records []storage.BuildRecord) error {
	if s.format == FormatJSON {
		return s.json(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, "No builds recorded")
		return nil
	}
	t := s.table("Recent builds", table.Row{"When", "Program", "Mode", "Arch", "Builder", "Commit", "Compiled", "Size", "Status"})
	for _, r := range records {
		t.AppendRow(table.Row{humanize.Time(r.CreatedAt), r.Program, r.Mode, r.Arch, r.Builder, r.Commit, r.Compiled, size(r.Size), buildStatus(r.Status)})
	}
	t.Render()
	return nil
}

func (s *service) InstallHistory(records []storage.InstallRecord) error {
	if s.format == FormatJSON {
		return s.json(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(s.out, "No installs recorded")
		return nil
	}
	t := s.table("Recent installs", table.Row{"When", "Program", "Action", "Staged", "Warnings", "Status"})
	for _, r := range records {
		t.AppendRow(table.Row{humanize.Time(r.CreatedAt), r.Program, r.Action, yesNo(r.Staged), r.Warnings, buildStatus(r.Status)})
	}
	t.Render()
	return nil
}

func (s *service) Trend(points []storage.TrendPoint) error {
	if s.format == FormatJSON {
		return s.json(points)
	}
	t := s.table("Build trend", table.Row{"Date", "Program", "Builds", "Failed", "Avg time", "Max size"})
	for _, p := range points {
		avg := time.Duration(p.AvgDurationMs * float64(time.Millisecond)).Round(time.Millisecond)
		t.AppendRow(table.Row{p.Date, p.Program, p.Builds, p.Failed, avg, size(p.MaxSize)})
	}
	t.Render()
	return nil
}

func (s *service) Project(project *model.Project, dump []byte) error {
	if s.format == FormatJSON {
		return s.json(project)
	}
	_, err := s.out.Write(dump)
	return err
}
