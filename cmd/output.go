package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"diary-sync/core/diff"
	"diary-sync/core/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	remStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	addStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	excludedStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	headerStyle   = lipgloss.NewStyle().Bold(true)
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderHunk formats one hunk as "<mark> <id> <text>". Excluded hunks are
// dimmed and struck through.
func renderHunk(h models.ConflictHunk) string {
	mark, style := "-", remStyle
	if h.DiffType == diff.Add {
		mark, style = "+", addStyle
	}
	if !h.Included {
		style = excludedStyle
	}
	return style.Render(fmt.Sprintf("%s %s %s", mark, h.ID, h.DiffText))
}
