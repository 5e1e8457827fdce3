package config

import "github.com/spf13/viper"

const (
	DefaultArch       = "x86"
	DefaultPrefix     = "/opt"
	DefaultSystemdDir = "/etc/systemd/system"
	DefaultShell      = "/usr/sbin/nologin"
	DefaultLintTool   = "cppcheck"
	DefaultRestart    = "on-failure"
	DefaultWantedBy   = "multi-user.target"
)

var defaultLintArgs = []string{
	"--enable=warning,style,performance,portability",
	"--inline-suppr",
	"--error-exitcode=1",
	"--quiet",
}

func setDefaults(v *viper.Viper, cpus int) {
	v.SetDefault("build.arch", DefaultArch)
	v.SetDefault("build.toolchains.x86.cc", "gcc")
	v.SetDefault("build.toolchains.x86.cxx", "g++")
	v.SetDefault("build.toolchains.arm.cc", "arm-linux-gnueabihf-gcc")
	v.SetDefault("build.toolchains.arm.cxx", "arm-linux-gnueabihf-g++")
	v.SetDefault("build.jobs", cpus)
	v.SetDefault("build.release_flags", []string{"-O2", "-DNDEBUG"})
	v.SetDefault("build.debug_flags", []string{"-O0", "-g3", "-DDEBUG"})
	v.SetDefault("build.release_dir", "release")
	v.SetDefault("build.debug_dir", "debug")

	v.SetDefault("lint.tool", DefaultLintTool)
	v.SetDefault("lint.args", defaultLintArgs)

	v.SetDefault("install.stage_dir", "")
	v.SetDefault("install.prefix", DefaultPrefix)
	v.SetDefault("install.systemd_dir", DefaultSystemdDir)
	v.SetDefault("install.shell", DefaultShell)

	v.SetDefault("dist.dir", "dist")
}
