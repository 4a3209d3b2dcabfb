package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "playvars.dev/pkg/playvars/internal/model"
)

func newTestTUI(t *testing.T) (*TUI, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	disableColor(t)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	return NewTUI(out, errOut), out, errOut
}

func TestTUI_ShortContentIsPrinted(t *testing.T) {
	tui, out, _ := newTestTUI(t)
	ctx := context.Background()

	tui.run = func(tea.Model) error {
		t.Fatal("pager must not start for short content")
		return nil
	}

	require.NoError(t, tui.Start(ctx, WithViewMode()))
	require.NoError(t, tui.DisplayReports(ctx, testReports()))
	tui.DisplaySummary(ctx, m.Summary{Templates: 2, Variables: 2, Conflicts: 1})

	assert.Empty(t, out.String(), "content is buffered until Wait")

	tui.Wait(ctx)
	tui.Close(ctx)

	output := out.String()
	assert.Contains(t, output, "stored reports")
	assert.Contains(t, output, "web.yml")
	assert.Contains(t, output, "2 template(s)")
}

func TestTUI_EmptyReports(t *testing.T) {
	tui, out, _ := newTestTUI(t)
	ctx := context.Background()

	require.NoError(t, tui.Start(ctx))
	require.NoError(t, tui.DisplayReports(ctx, nil))
	tui.Wait(ctx)

	assert.Contains(t, out.String(), noReportsMessage)
}

func TestTUI_LongContentOpensPager(t *testing.T) {
	tui, out, _ := newTestTUI(t)
	ctx := context.Background()

	var started tea.Model
	tui.run = func(model tea.Model) error {
		started = model
		return nil
	}

	require.NoError(t, tui.Start(ctx))
	tui.height = 5
	tui.width = 80

	require.NoError(t, tui.DisplayReports(ctx, manyReports(20)))
	tui.Wait(ctx)

	require.NotNil(t, started)
	pm, ok := started.(pagerModel)
	require.True(t, ok)
	assert.True(t, pm.ready)
	assert.Contains(t, pm.content, "tpl-19.j2")
	assert.Empty(t, out.String())
}

func TestTUI_PagerErrorFallsBackToPlainOutput(t *testing.T) {
	tui, out, errOut := newTestTUI(t)
	ctx := context.Background()

	tui.run = func(tea.Model) error { return errors.New("no tty") }

	require.NoError(t, tui.Start(ctx))
	tui.height = 3

	require.NoError(t, tui.DisplayReports(ctx, manyReports(10)))
	tui.Wait(ctx)

	assert.Contains(t, errOut.String(), "pager error: no tty")
	assert.Contains(t, out.String(), "tpl-9.j2")
}

func TestTUI_ImmediateOutput(t *testing.T) {
	tui, out, errOut := newTestTUI(t)
	ctx := context.Background()

	require.NoError(t, tui.DisplaySchema(ctx, []byte("{}\n")))
	require.NoError(t, tui.DisplayDiff(ctx, "web.yml", ""))
	tui.DisplayConflict(ctx, "web.yml", m.Conflict{Kind: "merge-conflict", Message: "boom"})

	assert.Equal(t, "{}\nno changes in web.yml\n", out.String())
	assert.Equal(t, "merge-conflict web.yml: boom\n", errOut.String())
}

func TestPagerModel_NeedsPagination(t *testing.T) {
	content := strings.Repeat("line\n", 10)

	assert.False(t, newPagerModel("t", content, 80, 0).needsPagination(), "unknown height prints directly")
	assert.False(t, newPagerModel("t", content, 80, 40).needsPagination())
	assert.True(t, newPagerModel("t", content, 80, 8).needsPagination())
}

func TestPagerModel_Update(t *testing.T) {
	content := strings.Repeat("line\n", 50)
	pm := newPagerModel("title", content, 0, 0)
	assert.False(t, pm.ready)
	assert.Equal(t, "loading...", pm.View())

	model, cmd := pm.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	assert.Nil(t, cmd)
	pm = model.(pagerModel)
	require.True(t, pm.ready)
	assert.Equal(t, 10, pm.viewport.Height)

	model, _ = pm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")})
	pm = model.(pagerModel)
	assert.True(t, pm.viewport.AtBottom())

	model, _ = pm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	pm = model.(pagerModel)
	assert.True(t, pm.viewport.AtTop())

	model, _ = pm.Update(tea.KeyMsg{Type: tea.KeyDown})
	pm = model.(pagerModel)
	assert.Equal(t, 1, pm.viewport.YOffset)

	assert.Contains(t, pm.View(), "title")
	assert.Contains(t, pm.View(), "q quit")

	model, _ = pm.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	pm = model.(pagerModel)
	assert.Equal(t, 18, pm.viewport.Height)
}

func TestPagerModel_Quit(t *testing.T) {
	pm := newPagerModel("title", "content\n", 80, 10)

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := pm.Update(key)
		require.NotNil(t, cmd, key.String())
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func manyReports(n int) []m.Report {
	reports := make([]m.Report, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("tpl-%d.j2", i)
		reports = append(reports, m.Report{
			Source:      m.Source{Origin: &m.File{Path: m.Path("templates/" + name)}},
			Playbook:    name,
			PlaybookDir: "templates",
			Variables:   []m.Variable{{Name: "x", Type: "scalar"}},
		})
	}

	return reports
}
