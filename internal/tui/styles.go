// Package tui provides terminal output rendering for forge: text and JSON
// renderers selected by --output.
//
// # Semantic colors
//
// Four semantic colors are exported for use across output components:
//   - ColorPrimary (Blue): informational and active states
//   - ColorSuccess (Green): success states, completed items
//   - ColorWarning (Yellow): warning states, attention required
//   - ColorError (Red): error states, failed items
//
// Call CheckNoColor() at the start of commands to respect the NO_COLOR
// environment variable. Colors are also disabled when TERM=dumb.
package tui

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskforge/forge/internal/constants"
)

//nolint:gochecknoglobals // intentional package-level constants for output styling
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	StyleBold = lipgloss.NewStyle().Bold(true)
	StyleDim  = lipgloss.NewStyle().Faint(true)
)

// TableStyles holds lipgloss styles for table rendering.
type TableStyles struct {
	Header lipgloss.Style
	Cell   lipgloss.Style
	Dim    lipgloss.Style
}

// NewTableStyles creates styles for table rendering.
func NewTableStyles() *TableStyles {
	return &TableStyles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDDD"}),
		Cell: lipgloss.NewStyle(),
		Dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
	}
}

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewOutputStyles creates common output styles using AdaptiveColor for light/dark terminal support.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// CheckNoColor respects the NO_COLOR environment variable. Call this at the
// start of commands that output styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns true if the terminal supports colors. Returns
// false if NO_COLOR is set (any value, including empty) or TERM=dumb, per
// https://no-color.org/.
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// TaskStatusColors returns the semantic color for each of the seven task
// lifecycle states.
func TaskStatusColors() map[constants.TaskStatus]lipgloss.AdaptiveColor {
	return map[constants.TaskStatus]lipgloss.AdaptiveColor{
		constants.TaskStatusPending:  {Light: "#585858", Dark: "#6C6C6C"},
		constants.TaskStatusReady:    {Light: "#0087AF", Dark: "#00D7FF"},
		constants.TaskStatusRunning:  {Light: "#0087AF", Dark: "#00D7FF"},
		constants.TaskStatusComplete: {Light: "#008700", Dark: "#00FF87"},
		constants.TaskStatusFailed:   {Light: "#AF0000", Dark: "#FF5F5F"},
		constants.TaskStatusBlocked:  {Light: "#AF8700", Dark: "#FFD700"},
		constants.TaskStatusSkipped:  {Light: "#585858", Dark: "#6C6C6C"},
	}
}

// TaskStatusIcon returns the icon/symbol for a given task status, maintaining
// an icon + color + text triple redundancy so status is never color-only.
func TaskStatusIcon(status constants.TaskStatus) string {
	icons := map[constants.TaskStatus]string{
		constants.TaskStatusPending:  "○",
		constants.TaskStatusReady:    "◐",
		constants.TaskStatusRunning:  "●",
		constants.TaskStatusComplete: "✓",
		constants.TaskStatusFailed:   "✗",
		constants.TaskStatusBlocked:  "⚠",
		constants.TaskStatusSkipped:  "◌",
	}
	if icon, ok := icons[status]; ok {
		return icon
	}
	return "?"
}

// IsAttentionStatus returns true if the task status requires user attention
// and should be sorted to the top of status listings.
func IsAttentionStatus(status constants.TaskStatus) bool {
	return status == constants.TaskStatusFailed || status == constants.TaskStatusBlocked
}

// SuggestedAction returns the suggested CLI command for a given task status,
// or "" if no action is needed.
func SuggestedAction(status constants.TaskStatus) string {
	actions := map[constants.TaskStatus]string{
		constants.TaskStatusFailed:  "forge retry-task",
		constants.TaskStatusBlocked: "forge status",
	}
	return actions[status]
}

// stripANSI removes ANSI escape codes from a string so visible width can be
// measured for column alignment.
func stripANSI(s string) string {
	var result strings.Builder
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if newI := trySkipANSI(runes, i); newI != i {
			i = newI
			continue
		}
		result.WriteRune(runes[i])
		i++
	}
	return result.String()
}

func trySkipANSI(runes []rune, i int) int {
	if i >= len(runes) || runes[i] != '\x1b' || i+1 >= len(runes) {
		return i
	}
	next := runes[i+1]
	if next == '[' {
		return skipCSISequence(runes, i)
	}
	if next == ']' {
		return skipOSCSequence(runes, i)
	}
	return i
}

func skipCSISequence(runes []rune, i int) int {
	i += 2
	for i < len(runes) {
		c := runes[i]
		i++
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			break
		}
	}
	return i
}

func skipOSCSequence(runes []rune, i int) int {
	i += 2
	for i < len(runes) {
		c := runes[i]
		if c == '\x07' {
			i++
			break
		}
		if c == '\x1b' && i+1 < len(runes) && runes[i+1] == '\\' {
			i += 2
			break
		}
		i++
	}
	return i
}

// padRight pads a string to the right to reach the target width, using
// visible character count (ANSI codes excluded) for alignment.
func padRight(s string, width int) string {
	visible := stripANSI(s)
	runeCount := utf8.RuneCountInString(visible)
	if runeCount >= width {
		runes := []rune(s)
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-runeCount)
}
