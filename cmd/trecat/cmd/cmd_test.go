package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

const grdpsb = "01+000027.81PIX_LATLON0000000000010000000000010000000000000000000000"

func frame(tag, payload string) string {
	return fmt.Sprintf("%-6s%05d%s", tag, len(payload), payload)
}

func testBlock(t *testing.T, area string) *nitf.Block {
	t.Helper()
	exts, err := nitf.NewParser().ParseExtensions([]byte(area))
	if err != nil {
		t.Fatalf("ParseExtensions: %v", err)
	}
	return &nitf.Block{Path: "test.tre", Data: []byte(area), Extensions: exts}
}

func TestParseBBox(t *testing.T) {
	b, err := parseBBox("-71.5, 42.0,-71.0,42.5")
	if err != nil {
		t.Fatalf("parseBBox: %v", err)
	}
	want := nitf.Bounds{MinLon: -71.5, MinLat: 42, MaxLon: -71, MaxLat: 42.5}
	if b != want {
		t.Errorf("parseBBox = %+v, want %+v", b, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "1,1,0,0"} {
		if _, err := parseBBox(bad); err == nil {
			t.Errorf("parseBBox(%q) should fail", bad)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := parseLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Error("parseLevel(loud) should fail")
	}
}

func TestWriteText(t *testing.T) {
	b := testBlock(t, frame("GRDPSB", grdpsb)+frame("XYZZY", "abc"))
	var out bytes.Buffer
	if err := writeText(&out, b); err != nil {
		t.Fatalf("writeText: %v", err)
	}
	for _, want := range []string{
		"GRDPSB (68 bytes)",
		`NUM_GRDS = "01"`,
		"GRDS: 1",
		`BAD = "PIX_LATLON"`,
		"XYZZY (3 bytes, no schema)",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, out.String())
		}
	}
}

func TestWriteYAML(t *testing.T) {
	b := testBlock(t, frame("GRDPSB", grdpsb)+frame("XYZZY", "abc"))
	var out bytes.Buffer
	if err := writeYAML(&out, b); err != nil {
		t.Fatalf("writeYAML: %v", err)
	}
	s := out.String()
	for _, want := range []string{"path: test.tre", "tag: GRDPSB", `NUM_GRDS: "01"`, "ZVL: \"+000027.81\"", "raw: !!binary YWJj"} {
		if !strings.Contains(s, want) {
			t.Errorf("yaml output missing %q:\n%s", want, s)
		}
	}
	// Field order follows the record.
	if strings.Index(s, "NUM_GRDS") > strings.Index(s, "GRDS:") {
		t.Errorf("NUM_GRDS printed after GRDS:\n%s", s)
	}
}

func TestCheckBlock(t *testing.T) {
	parser := nitf.NewParser()
	b := testBlock(t, frame("GRDPSB", grdpsb))
	if msg, ok := checkBlock(parser, b); !ok {
		t.Errorf("clean block failed check: %s", msg)
	}

	b.Data = append(b.Data, 'x')
	if msg, ok := checkBlock(parser, b); ok || !strings.Contains(msg, "byte 79") {
		t.Errorf("modified block: %s", msg)
	}
}

func TestFirstDifference(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "abc", -1},
		{"abc", "abd", 2},
		{"ab", "abc", 2},
		{"", "", -1},
	}
	for _, tt := range tests {
		if got := firstDifference([]byte(tt.a), []byte(tt.b)); got != tt.want {
			t.Errorf("firstDifference(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
