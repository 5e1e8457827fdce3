// Package banner prints the maxbuild title on interactive terminals.
package banner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mmo-fsw/maxbuild/model"
	"golang.org/x/term"
)

// ColorEnv overrides the title color by name.
const ColorEnv = "MAXBUILD_BANNER_COLOR"

var titleColors = map[string]text.Colors{
	"yellow":  {text.FgHiYellow, text.Bold},
	"cyan":    {text.FgHiCyan, text.Bold},
	"green":   {text.FgHiGreen, text.Bold},
	"magenta": {text.FgHiMagenta, text.Bold},
	"white":   {text.FgHiWhite, text.Bold},
}

const defaultColor = "yellow"

var titleLines = []string{
	" ███╗   ███╗  █████╗  ██╗  ██╗ ██████╗  ██╗   ██╗ ██╗ ██╗      ██████╗",
	" ████╗ ████║ ██╔══██╗ ╚██╗██╔╝ ██╔══██╗ ██║   ██║ ██║ ██║      ██╔══██╗",
	" ██╔████╔██║ ███████║  ╚███╔╝  ██████╔╝ ██║   ██║ ██║ ██║      ██║  ██║",
	" ██║╚██╔╝██║ ██╔══██║  ██╔██╗  ██╔══██╗ ██║   ██║ ██║ ██║      ██║  ██║",
	" ██║ ╚═╝ ██║ ██║  ██║ ██╔╝ ██╗ ██████╔╝ ╚██████╔╝ ██║ ███████╗ ██████╔╝",
	" ╚═╝     ╚═╝ ╚═╝  ╚═╝ ╚═╝  ╚═╝ ╚═════╝   ╚═════╝  ╚═╝ ╚══════╝ ╚═════╝",
}

// DrawBannerTitle prints the title and a version line to stderr, sized to the terminal.
func DrawBannerTitle(info model.VersionInfo, arch string) {
	width := 80
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil {
		width = w
	}
	Write(os.Stderr, info, arch, width, os.Getenv(ColorEnv))
}

// Write renders the banner to w centered in width columns. An unknown color
// name falls back to the default.
func Write(w io.Writer, info model.VersionInfo, arch string, width int, color string) {
	colors, ok := titleColors[strings.ToLower(strings.TrimSpace(color))]
	if !ok {
		colors = titleColors[defaultColor]
	}
	// pad the block as a whole so ragged line ends keep the letters aligned
	pad := padding(blockWidth(), width)
	for _, line := range titleLines {
		fmt.Fprintln(w, colors.Sprint(pad+line))
	}
	subtitle := fmt.Sprintf("maxbuild %s (%s) for %s", info.Version, info.Commit, arch)
	fmt.Fprintln(w, center(subtitle, width))
	fmt.Fprintln(w)
}

func center(line string, width int) string {
	return padding(utf8.RuneCountInString(line), width) + line
}

func padding(n, width int) string {
	if width <= n {
		return ""
	}
	return strings.Repeat(" ", (width-n)/2)
}

func blockWidth() int {
	n := 0
	for _, line := range titleLines {
		n = max(n, utf8.RuneCountInString(line))
	}
	return n
}
