package model

import (
	"os"
	"path/filepath"
)

// BuildMode selects the flag set and output directory of a build.
type BuildMode string

const (
	ModeRelease BuildMode = "release"
	ModeDebug   BuildMode = "debug"
)

// Project is the loaded maxbuild manifest.
type Project struct {
	// Dir is the directory holding the manifest; relative paths resolve against it.
	Dir          string        `mapstructure:"-" yaml:"-"`
	ManifestPath string        `mapstructure:"-" yaml:"-"`
	Build        BuildSettings `mapstructure:"build" yaml:"build" validate:"required"`
	Lint         LintSettings  `mapstructure:"lint" yaml:"lint"`
	Install      InstallConfig `mapstructure:"install" yaml:"install"`
	Dist         DistSettings  `mapstructure:"dist" yaml:"dist"`
	Programs     []Program     `mapstructure:"programs" yaml:"programs" validate:"required,min=1,unique=Name,dive"`
}

// BuildSettings holds compiler selection and per-mode flags.
type BuildSettings struct {
	Arch         string               `mapstructure:"arch" yaml:"arch" validate:"required,oneof=x86 arm"`
	Toolchains   map[string]Toolchain `mapstructure:"toolchains" yaml:"toolchains" validate:"required,dive"`
	Jobs         int                  `mapstructure:"jobs" yaml:"jobs" validate:"gte=1"`
	ReleaseFlags []string             `mapstructure:"release_flags" yaml:"release_flags"`
	DebugFlags   []string             `mapstructure:"debug_flags" yaml:"debug_flags"`
	ReleaseDir   string               `mapstructure:"release_dir" yaml:"release_dir" validate:"required"`
	DebugDir     string               `mapstructure:"debug_dir" yaml:"debug_dir" validate:"required"`
}

// Toolchain names the C and C++ compiler drivers for one architecture.
type Toolchain struct {
	CC  string `mapstructure:"cc" yaml:"cc" validate:"required"`
	CXX string `mapstructure:"cxx" yaml:"cxx" validate:"required"`
}

// LintSettings configures the static analyzer run by the lint target.
type LintSettings struct {
	Tool string   `mapstructure:"tool" yaml:"tool" validate:"required"`
	Args []string `mapstructure:"args" yaml:"args"`
}

// InstallConfig holds machine-wide install settings.
type InstallConfig struct {
	StageDir   string   `mapstructure:"stage_dir" yaml:"stage_dir"`
	Groups     []string `mapstructure:"groups" yaml:"groups"`
	Prefix     string   `mapstructure:"prefix" yaml:"prefix" validate:"required"`
	SystemdDir string   `mapstructure:"systemd_dir" yaml:"systemd_dir" validate:"required"`
	Shell      string   `mapstructure:"shell" yaml:"shell" validate:"required"`
}

// Staged reports whether installs go to a stage root instead of the live system.
func (c InstallConfig) Staged() bool {
	return c.StageDir != ""
}

// DistSettings configures bundle output.
type DistSettings struct {
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// Program is one executable described by the manifest.
type Program struct {
	Name          string        `mapstructure:"name" yaml:"name" validate:"required,excludesall=/"`
	Sources       []string      `mapstructure:"sources" yaml:"sources" validate:"required,min=1"`
	VersionSource string        `mapstructure:"version_source" yaml:"version_source"`
	IncludeDirs   []string      `mapstructure:"include_dirs" yaml:"include_dirs"`
	Defines       []string      `mapstructure:"defines" yaml:"defines"`
	CFlags        []string      `mapstructure:"cflags" yaml:"cflags"`
	CXXFlags      []string      `mapstructure:"cxxflags" yaml:"cxxflags"`
	LDFlags       []string      `mapstructure:"ldflags" yaml:"ldflags"`
	Libs          []string      `mapstructure:"libs" yaml:"libs"`
	User          string        `mapstructure:"user" yaml:"user"`
	Group         string        `mapstructure:"group" yaml:"group"`
	InstallDir    string        `mapstructure:"install_dir" yaml:"install_dir"`
	Files         []InstallFile `mapstructure:"files" yaml:"files" validate:"dive"`
	Capabilities  []string      `mapstructure:"capabilities" yaml:"capabilities" validate:"dive,startswith=cap_"`
	SocketPath    string        `mapstructure:"socket_path" yaml:"socket_path"`
	Service       *ServiceUnit  `mapstructure:"service" yaml:"service"`
	DistFiles     []string      `mapstructure:"dist_files" yaml:"dist_files"`
}

// InstallFile is an extra file shipped next to the executable.
type InstallFile struct {
	Src  string      `mapstructure:"src" yaml:"src" validate:"required"`
	Dest string      `mapstructure:"dest" yaml:"dest" validate:"required"`
	Mode os.FileMode `mapstructure:"mode" yaml:"mode"`
}

// ServiceUnit describes the systemd unit generated for a program.
type ServiceUnit struct {
	Description string   `mapstructure:"description" yaml:"description"`
	Args        []string `mapstructure:"args" yaml:"args"`
	After       []string `mapstructure:"after" yaml:"after"`
	Wants       []string `mapstructure:"wants" yaml:"wants"`
	Restart     string   `mapstructure:"restart" yaml:"restart" validate:"omitempty,oneof=no always on-success on-failure on-abnormal on-abort on-watchdog"`
	RestartSec  int      `mapstructure:"restart_sec" yaml:"restart_sec" validate:"gte=0"`
	Environment []string `mapstructure:"environment" yaml:"environment" validate:"dive,contains=="`
	WantedBy    string   `mapstructure:"wanted_by" yaml:"wanted_by"`
}

// ActiveToolchain returns the toolchain selected by Build.Arch.
func (p *Project) ActiveToolchain() Toolchain {
	return p.Build.Toolchains[p.Build.Arch]
}

// Path resolves a manifest-relative path.
func (p *Project) Path(rel string) string {
	if filepath.IsAbs(rel) || p.Dir == "" {
		return rel
	}
	return filepath.Join(p.Dir, rel)
}

// OutputDir returns the executable directory for a build mode.
func (p *Project) OutputDir(mode BuildMode) string {
	if mode == ModeDebug {
		return p.Path(p.Build.DebugDir)
	}
	return p.Path(p.Build.ReleaseDir)
}

// Executable returns where the build of a program in the given mode lands.
func (p *Project) Executable(prog Program, mode BuildMode) string {
	return filepath.Join(p.OutputDir(mode), prog.Name)
}

// Program looks up a program by name.
func (p *Project) Program(name string) (Program, bool) {
	for _, prog := range p.Programs {
		if prog.Name == name {
			return prog, true
		}
	}
	return Program{}, false
}

// ServiceName is the systemd unit file name of the program.
func (p Program) ServiceName() string {
	return p.Name + ".service"
}
