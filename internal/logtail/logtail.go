// Package logtail reads the tail of epterm's own log file for the Logs view.
package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

// Read returns at most maxLines from the end of the file at path.
// A missing file yields no lines and no error.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is a decoded slog JSON line.
type Entry struct {
	Time    string
	Level   string
	Message string
	Fields  map[string]string
}

// Parse decodes a slog JSON line. Lines that are not JSON come back as the message.
func Parse(line string) Entry {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{Message: line}
	}
	entry := Entry{Fields: map[string]string{}}
	for k, v := range raw {
		s := fmt.Sprint(v)
		switch k {
		case "time":
			entry.Time = s
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		default:
			entry.Fields[k] = s
		}
	}
	return entry
}

// Format renders an entry on one line: "LEVEL message key=value ...".
func (e Entry) Format() string {
	var b strings.Builder
	if e.Level != "" {
		b.WriteString(fmt.Sprintf("%-5s ", e.Level))
	}
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(e.Fields[k])
	}
	return b.String()
}
