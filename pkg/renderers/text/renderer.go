// Package text renders status lines, list tables and alerts for terminals.
package text

import (
	"context"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/goliatone/go-herdform/pkg/render"
	"github.com/goliatone/go-herdform/pkg/submit"
)

// Name is the registry name of the renderer.
const Name = "text"

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	alertStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Renderer implements render.Renderer for terminal output.
type Renderer struct{}

var _ render.Renderer = Renderer{}

// New returns the terminal renderer.
func New() Renderer {
	return Renderer{}
}

func (Renderer) Name() string {
	return Name
}

func (Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// RenderStatus renders "✓ text" or "✗ text". Hidden statuses render nothing.
// Messages are always shown as text; terminals have no markup to sanitise.
func (Renderer) RenderStatus(_ context.Context, view render.StatusView, _ render.RenderOptions) ([]byte, error) {
	if !view.Visible {
		return nil, nil
	}
	return []byte(toneLine(view.Tone, view.Text)), nil
}

// RenderList renders the list title followed by an aligned table, the empty
// text or the loading error.
func (Renderer) RenderList(_ context.Context, view render.ListView, _ render.RenderOptions) ([]byte, error) {
	var blocks []string
	if view.Title != "" {
		blocks = append(blocks, titleStyle.Render(view.Title))
	}

	switch {
	case view.Error != "":
		blocks = append(blocks, failureStyle.Render(view.Error))
	case view.Empty():
		blocks = append(blocks, mutedStyle.Render(view.EmptyText))
	default:
		blocks = append(blocks, renderTable(view))
	}
	return []byte(lipgloss.JoinVertical(lipgloss.Left, blocks...)), nil
}

// RenderAlert renders a bordered notice.
func (Renderer) RenderAlert(_ context.Context, view render.AlertView, _ render.RenderOptions) ([]byte, error) {
	return []byte(alertStyle.Render(toneLine(view.Tone, view.Text))), nil
}

func toneLine(tone submit.Tone, text string) string {
	switch tone {
	case submit.ToneSuccess:
		return successStyle.Render("✓ " + text)
	case submit.ToneFailure:
		return failureStyle.Render("✗ " + text)
	default:
		return text
	}
}

func renderTable(view render.ListView) string {
	columns := len(view.Columns)
	for _, row := range view.Rows {
		if n := len(row.Cells) + actionColumn(row.Action != nil); n > columns {
			columns = n
		}
	}

	grid := make([][]string, 0, len(view.Rows)+1)
	header := make([]string, columns)
	copy(header, view.Columns)
	grid = append(grid, header)
	for _, row := range view.Rows {
		line := make([]string, columns)
		copy(line, row.Cells)
		if row.Action != nil {
			line[columns-1] = "[" + row.Action.Label + "]"
		}
		grid = append(grid, line)
	}

	widths := make([]int, columns)
	for _, line := range grid {
		for i, cell := range line {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(grid))
	for i, line := range grid {
		cells := make([]string, columns)
		for j, cell := range line {
			style := cellStyle.Width(widths[j] + 2)
			if i == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[j] = style.Render(cell)
		}
		lines = append(lines, strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func actionColumn(has bool) int {
	if has {
		return 1
	}
	return 0
}
