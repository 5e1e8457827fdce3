package toolchain

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mmo-fsw/maxbuild/model"
)

// objectDir keeps objects per arch so switching toolchains never links
// objects built by another compiler.
func objectDir(project *model.Project, prog model.Program, mode model.BuildMode) string {
	return filepath.Join(project.OutputDir(mode), "obj", project.Build.Arch, prog.Name)
}

// linkMarker records which arch the executable in the mode's output dir was
// last linked for, since release/<prog> is shared by every arch.
func linkMarker(project *model.Project, prog model.Program, mode model.BuildMode) string {
	return filepath.Join(project.OutputDir(mode), "obj", prog.Name+".arch")
}

func linkedArch(marker string) string {
	data, err := os.ReadFile(marker)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// needsCompile decides whether an object is stale. Version sources always
// rebuild so the stamp in the binary is fresh.
func needsCompile(u compileUnit) (bool, string) {
	if u.version {
		return true, "version source"
	}
	obj, err := os.Stat(u.object)
	if err != nil {
		return true, "no object"
	}
	src, err := os.Stat(u.source)
	if err != nil || src.ModTime().After(obj.ModTime()) {
		return true, "source changed"
	}
	data, err := os.ReadFile(u.depFile)
	if err != nil {
		return true, "no dependency file"
	}
	for _, dep := range parseDepFile(string(data)) {
		info, err := os.Stat(dep)
		if err != nil {
			return true, "dependency missing: " + dep
		}
		if info.ModTime().After(obj.ModTime()) {
			return true, "dependency changed: " + dep
		}
	}
	return false, ""
}

// parseDepFile returns the prerequisites listed in a compiler generated
// make fragment (-MMD -MP output).
func parseDepFile(text string) []string {
	text = strings.ReplaceAll(text, "\\\r\n", " ")
	text = strings.ReplaceAll(text, "\\\n", " ")
	seen := map[string]bool{}
	var deps []string
	for _, line := range strings.Split(text, "\n") {
		i := strings.Index(line, ": ")
		if i < 0 {
			continue
		}
		rest := strings.ReplaceAll(line[i+2:], `\ `, "\x00")
		for _, f := range strings.Fields(rest) {
			f = strings.ReplaceAll(f, "\x00", " ")
			f = strings.ReplaceAll(f, "$$", "$")
			if !seen[f] {
				seen[f] = true
				deps = append(deps, f)
			}
		}
	}
	return deps
}

func needsLink(exe string, objects []string) bool {
	info, err := os.Stat(exe)
	if err != nil {
		return true
	}
	for _, o := range objects {
		oi, err := os.Stat(o)
		if err != nil || oi.ModTime().After(info.ModTime()) {
			return true
		}
	}
	return false
}
