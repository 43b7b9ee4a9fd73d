package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"unicode/utf8"
)

// FilePlaceholder is replaced with the image path in command arguments.
const FilePlaceholder = "{file}"

const maxOutput = 512

// CommandSetter runs an external program to set the wallpaper.
type CommandSetter struct {
	argv []string
}

// NewCommandSetter builds a setter from an argv template. Every occurrence
// of {file} is replaced with the image path; when no argument contains it,
// the path is appended.
func NewCommandSetter(argv []string) (*CommandSetter, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("wallpaper command is empty")
	}
	return &CommandSetter{argv: append([]string(nil), argv...)}, nil
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(line string) []string {
	return strings.Fields(line)
}

// Args returns the argv for localPath.
func (c *CommandSetter) Args(localPath string) []string {
	out := make([]string, 0, len(c.argv)+1)
	substituted := false
	for _, a := range c.argv {
		if strings.Contains(a, FilePlaceholder) {
			substituted = true
		}
		out = append(out, strings.ReplaceAll(a, FilePlaceholder, localPath))
	}
	if !substituted {
		out = append(out, localPath)
	}
	return out
}

func (c *CommandSetter) SetWallpaper(ctx context.Context, localPath string) error {
	args := c.Args(localPath)
	// Command comes from configuration, not from fetched data.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command %q failed: %w, output: %s", args[0], err, truncate(string(out), maxOutput))
	}
	return nil
}

// DefaultCommands returns the platform's setter and viewer command templates.
// Either may be nil when the platform has no sensible default.
func DefaultCommands(goos string) (setter, viewer []string) {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", `tell application "System Events" to set picture of every desktop to POSIX file "{file}"`},
			[]string{"open", FilePlaceholder}
	case "windows":
		return nil, []string{"explorer", FilePlaceholder}
	default:
		return []string{"gsettings", "set", "org.gnome.desktop.background", "picture-uri", "file://" + FilePlaceholder},
			[]string{"xdg-open", FilePlaceholder}
	}
}

// BuildSetter assembles the setter chain from configured command lines,
// falling back to the platform defaults for empty ones.
func BuildSetter(command, fallback string) (Chain, error) {
	defSetter, defViewer := DefaultCommands(runtime.GOOS)
	primary := ParseCommand(command)
	if len(primary) == 0 {
		primary = defSetter
	}
	secondary := ParseCommand(fallback)
	if len(secondary) == 0 {
		secondary = defViewer
	}

	var chain Chain
	for _, argv := range [][]string{primary, secondary} {
		if len(argv) == 0 {
			continue
		}
		s, err := NewCommandSetter(argv)
		if err != nil {
			return nil, err
		}
		chain = append(chain, s)
	}
	if len(chain) == 0 {
		return nil, errors.New("no wallpaper command available on this platform")
	}
	return chain, nil
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
