package output

import (
	"io"

	"github.com/mmo-fsw/maxbuild/model"
	"github.com/mmo-fsw/maxbuild/service/publish"
	"github.com/mmo-fsw/maxbuild/service/storage"
)

// Format represents the output format type
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

type service struct {
	format Format
	out    io.Writer
}

// Service renders target results and history listings.
type Service interface {
	Builds(results []*model.BuildResult) error
	Lint(results []*model.LintResult) error
	Dist(results []*model.DistResult) error
	Preprocess(results []*model.PreprocessResult) error
	Clean(result *model.CleanResult) error
	Installs(reports []*model.InstallReport) error
	Publish(result *publish.Result) error
	BuildHistory(records []storage.BuildRecord) error
	InstallHistory(records []storage.InstallRecord) error
	Trend(points []storage.TrendPoint) error
	Project(project *model.Project, dump []byte) error
}
