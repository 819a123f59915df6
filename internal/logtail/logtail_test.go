package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "epterm.log")

	var content strings.Builder
	var all []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		all = append(all, line)
	}
	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		want     []string
	}{
		{"zero", 0, nil},
		{"negative", -1, nil},
		{"partial", 5, all[5:]},
		{"exact", 10, all},
		{"more than exists", 20, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Read = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read = %v, %v; want nil, nil", lines, err)
	}
}

func TestParseAndFormat(t *testing.T) {
	entry := Parse(`{"time":"2026-01-02T03:04:05Z","level":"WARN","msg":"fetch failed","view":"shop","err":"boom"}`)
	if entry.Level != "WARN" || entry.Message != "fetch failed" {
		t.Fatalf("entry = %#v", entry)
	}
	if got, want := entry.Format(), "WARN  fetch failed err=boom view=shop"; got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}

	plain := Parse("not json")
	if plain.Message != "not json" || plain.Format() != "not json" {
		t.Fatalf("plain entry = %#v", plain)
	}
}
