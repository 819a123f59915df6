// Package prefs persists epterm's UI preferences in ~/.config/epterm/prefs.toml.
// Every failure degrades to defaults; preferences never stop the TUI starting.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/electrophobia/epterm/internal/config"
)

// Prefs holds the user's UI choices.
type Prefs struct {
	Theme string `toml:"theme"`
	// StartPage is the route opened on launch, e.g. "blogs".
	StartPage string `toml:"start_page"`
	// Realtime toggles live refresh; nil means on.
	Realtime *bool `toml:"realtime,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/epterm/prefs.toml"
	defaultTheme     = "Circuit"
	defaultStartPage = "home"
)

// Default returns the preferences used when nothing is saved.
func Default() Prefs {
	return Prefs{Theme: defaultTheme, StartPage: defaultStartPage}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// RealtimeEnabled reports whether live refresh is on.
func (p Prefs) RealtimeEnabled() bool {
	return p.Realtime == nil || *p.Realtime
}

// Load reads preferences from path, falling back to defaults on any problem.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default()
	}
	bytes, err := os.ReadFile(resolved)
	if err != nil {
		return Default()
	}

	p := Default()
	if err := toml.Unmarshal(bytes, &p); err != nil {
		return Default()
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	if strings.TrimSpace(p.StartPage) == "" {
		p.StartPage = defaultStartPage
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return config.ExpandPath(defaultPrefsPath)
	}
	return config.ExpandPath(path)
}
