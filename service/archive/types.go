package archive

import (
	"errors"
	"os"

	"github.com/mmo-fsw/maxbuild/model"
)

var (
	// ErrNoReleaseBuild is returned when dist or install runs before release.
	ErrNoReleaseBuild = errors.New("no release build: run the release target first")
	// ErrUnsafePath is returned for bundle entries that would escape the destination.
	ErrUnsafePath = errors.New("unsafe path in bundle")
)

const (
	// ExecutableMode is the permission of bin/<program> inside runtime bundles.
	ExecutableMode os.FileMode = 0o750
	dirMode        os.FileMode = 0o755
	bundleExt                  = ".tar.xz"
)

// Entry is one file or directory to place in a bundle. Source is read from
// disk when Data is nil.
type Entry struct {
	Name   string
	Mode   os.FileMode
	Dir    bool
	Source string
	Data   []byte
}

type service struct{}

// Service writes and unpacks tar.xz bundles.
type Service interface {
	Dist(project *model.Project, prog model.Program, st model.Stamp) (*model.DistResult, error)
	RuntimeBundle(project *model.Project, prog model.Program, st model.Stamp) (string, int64, error)
	SourceBundle(project *model.Project, prog model.Program, st model.Stamp) (string, int64, error)
	Extract(bundle, dest string) ([]string, error)
}
