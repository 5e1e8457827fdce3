package banner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mmo-fsw/maxbuild/model"
)

func TestWriteCentersTitle(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, model.VersionInfo{Version: "1.4.0", Commit: "abc123"}, "arm", 120, "cyan")

	lines := strings.Split(strings.TrimRight(text.StripEscape(buf.String()), "\n"), "\n")
	if len(lines) != len(titleLines)+1 {
		t.Fatalf("expected %d lines, got %d", len(titleLines)+1, len(lines))
	}
	if !strings.HasPrefix(lines[0], "          ") {
		t.Fatalf("title not centered: %q", lines[0])
	}
	if got := strings.TrimSpace(lines[len(lines)-1]); got != "maxbuild 1.4.0 (abc123) for arm" {
		t.Fatalf("unexpected subtitle %q", got)
	}
}

func TestWriteNarrowTerminal(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, model.VersionInfo{Version: "dev", Commit: "none"}, "x86", 10, "no-such-color")

	out := text.StripEscape(buf.String())
	if !strings.Contains(out, "\n"+titleLines[1]+"\n") {
		t.Fatalf("narrow output should not be padded:\n%s", out)
	}
}
