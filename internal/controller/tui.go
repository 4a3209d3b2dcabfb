package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	m "playvars.dev/pkg/playvars/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI with a Bubble Tea pager for long report lists.
//
// Reports and the summary are buffered until Wait, which prints them directly
// when they fit the terminal and opens the pager otherwise.
type TUI struct {
	output    io.Writer
	errOutput io.Writer
	config    StartConfig

	content strings.Builder
	height  int
	width   int

	// run starts the pager; replaced in tests.
	run func(model tea.Model) error
}

// NewTUI creates a new TUI.
func NewTUI(output, errOutput io.Writer) *TUI {
	t := &TUI{output: output, errOutput: errOutput, config: NewStartConfig()}
	t.run = t.runProgram

	return t
}

// Start resets the buffered content and measures the terminal.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.config = NewStartConfig(options...)
	t.content.Reset()

	if f, ok := t.output.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			t.width = width
			t.height = height
		}
	}

	return nil
}

// Close finalizes the UI.
func (t *TUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.content.Reset()
}

// Wait shows the buffered content and blocks until the user leaves the pager.
func (t *TUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}

	content := t.content.String()
	if content == "" {
		return
	}

	title := t.title()
	model := newPagerModel(title, content, t.width, t.height)

	if !model.needsPagination() {
		_, _ = fmt.Fprintf(t.output, "%s\n%s", titleStyle.Render(title), content)
		return
	}

	if err := t.run(model); err != nil {
		_, _ = fmt.Fprintf(t.errOutput, "pager error: %v\n", err)
		_, _ = fmt.Fprint(t.output, content)
	}
}

func (t *TUI) title() string {
	if t.config.Mode() == ModeView {
		return "playvars · stored reports"
	}

	return "playvars · templates"
}

func (t *TUI) runProgram(model tea.Model) error {
	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen())
	_, err := program.Run()

	return err
}

// DisplayReports buffers the report table.
func (t *TUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(reports) == 0 {
		t.content.WriteString(noReportsMessage)
		return nil
	}

	t.content.WriteString(renderReportsTable(reports))

	return nil
}

// DisplaySummary buffers the run totals.
func (t *TUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	t.content.WriteString("\n")
	t.content.WriteString(formatSummary(summary))
}

// DisplaySchema prints an encoded schema immediately.
func (t *TUI) DisplaySchema(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.output.Write(doc)

	return err
}

// DisplayConflict prints a conflict to the error output.
func (t *TUI) DisplayConflict(ctx context.Context, name string, conflict m.Conflict) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprint(t.errOutput, formatConflict(name, conflict))
}

// DisplayDiff prints a unified diff immediately.
func (t *TUI) DisplayDiff(ctx context.Context, name string, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if diff == "" {
		_, err := fmt.Fprintf(t.output, "no changes in %s\n", name)
		return err
	}

	_, err := fmt.Fprint(t.output, colorizeDiff(diff))

	return err
}

// pagerModel is the Bubble Tea model that scrolls long content.
type pagerModel struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

const pagerChromeLines = 2

func newPagerModel(title, content string, width, height int) pagerModel {
	pm := pagerModel{title: title, content: content, width: width, height: height}
	if height > pagerChromeLines {
		pm.viewport = viewport.New(width, height-pagerChromeLines)
		pm.viewport.SetContent(content)
		pm.ready = true
	}

	return pm
}

// needsPagination reports whether content overflows a known terminal height.
func (pm pagerModel) needsPagination() bool {
	if pm.height <= 0 {
		return false
	}

	return strings.Count(pm.content, "\n")+pagerChromeLines > pm.height
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.width = msg.Width
		pm.height = msg.Height

		if !pm.ready {
			pm.viewport = viewport.New(msg.Width, msg.Height-pagerChromeLines)
			pm.viewport.SetContent(pm.content)
			pm.ready = true
		} else {
			pm.viewport.Width = msg.Width
			pm.viewport.Height = msg.Height - pagerChromeLines
		}

		return pm, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return pm, tea.Quit
		case "g", "home":
			pm.viewport.GotoTop()
			return pm, nil
		case "G", "end":
			pm.viewport.GotoBottom()
			return pm, nil
		}
	}

	var cmd tea.Cmd
	pm.viewport, cmd = pm.viewport.Update(msg)

	return pm, cmd
}

func (pm pagerModel) View() string {
	if !pm.ready {
		return "loading..."
	}

	footer := footerStyle.Render(fmt.Sprintf("%3.f%%  j/k scroll · d/u half page · g/G top/bottom · q quit",
		pm.viewport.ScrollPercent()*100))

	return fmt.Sprintf("%s\n%s\n%s", titleStyle.Render(pm.title), pm.viewport.View(), footer)
}
