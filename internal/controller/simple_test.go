package controller

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "playvars.dev/pkg/playvars/internal/model"
)

func disableColor(t *testing.T) {
	t.Helper()

	previous := color.NoColor
	color.NoColor = true

	t.Cleanup(func() { color.NoColor = previous })
}

func newTestSimpleUI(t *testing.T) (*SimpleUI, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	disableColor(t)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	return NewSimpleUI(cmd), out, errOut
}

func testReports() []m.Report {
	return []m.Report{
		{
			Source:      m.Source{Origin: &m.File{Path: "site/web.yml"}},
			Playbook:    "web.yml",
			PlaybookDir: "site",
			Variables: []m.Variable{
				{Name: "hosts", Type: "list"},
				{Name: "port", Type: "number", Flags: []string{m.FlagUsedWithDefault}},
			},
		},
		{
			Source:      m.Source{Origin: &m.File{Path: "site/db.yml"}},
			Playbook:    "db.yml",
			PlaybookDir: "site",
			Conflict:    &m.Conflict{Kind: "merge-conflict", Message: `"a" used as <string> on line 1 conflicts with "a" used as <number> on line 2`},
		},
	}
}

func TestSimpleUI_Lifecycle(t *testing.T) {
	ui, out, _ := newTestSimpleUI(t)
	ctx := context.Background()

	require.NoError(t, ui.Start(ctx, WithViewMode()))
	assert.Equal(t, ModeView, ui.config.Mode())

	ui.Wait(ctx)
	ui.Close(ctx)
	assert.Empty(t, out.String())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, ui.Start(cancelled), context.Canceled)
}

func TestSimpleUI_DisplayReports(t *testing.T) {
	ui, out, _ := newTestSimpleUI(t)

	require.NoError(t, ui.DisplayReports(context.Background(), testReports()))

	output := out.String()
	assert.Contains(t, output, "TEMPLATE")
	assert.Contains(t, output, "web.yml")
	assert.Contains(t, output, "hosts, port?")
	assert.Contains(t, output, "db.yml")
	assert.Contains(t, output, `"a" used as <string> on line 1`)
}

func TestSimpleUI_DisplayReports_Empty(t *testing.T) {
	ui, out, _ := newTestSimpleUI(t)

	require.NoError(t, ui.DisplayReports(context.Background(), nil))
	assert.Equal(t, noReportsMessage, out.String())
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	ui, out, _ := newTestSimpleUI(t)

	ui.DisplaySummary(context.Background(), m.Summary{Templates: 3, Cached: 1, Variables: 7, Conflicts: 1})
	assert.Equal(t, "\n3 template(s), 1 cached, 7 variable(s), 1 conflict(s)\n", out.String())
}

func TestSimpleUI_DisplaySchemaAndConflict(t *testing.T) {
	ui, out, errOut := newTestSimpleUI(t)
	ctx := context.Background()

	require.NoError(t, ui.DisplaySchema(ctx, []byte("type: dictionary\n")))
	assert.Equal(t, "type: dictionary\n", out.String())

	ui.DisplayConflict(ctx, "web.yml", m.Conflict{Kind: "syntax-error", Message: "web.yml:2: unexpected end of template"})
	assert.Equal(t, "syntax-error web.yml: web.yml:2: unexpected end of template\n", errOut.String())
}

func TestSimpleUI_DisplayDiff(t *testing.T) {
	t.Run("no changes", func(t *testing.T) {
		ui, out, _ := newTestSimpleUI(t)

		require.NoError(t, ui.DisplayDiff(context.Background(), "web.yml", ""))
		assert.Equal(t, "no changes in web.yml\n", out.String())
	})

	t.Run("prints the diff", func(t *testing.T) {
		ui, out, _ := newTestSimpleUI(t)
		diff := "--- a\n+++ b\n@@ -1 +1 @@\n-old\n+new\n"

		require.NoError(t, ui.DisplayDiff(context.Background(), "web.yml", diff))
		assert.Equal(t, diff, out.String())
	})
}

func TestStartConfig(t *testing.T) {
	assert.Equal(t, ModeList, NewStartConfig().Mode())
	assert.Equal(t, ModeInfer, NewStartConfig(WithViewMode(), WithInferMode()).Mode())
	assert.Equal(t, ModeDiff, NewStartConfig(WithDiffMode()).Mode())
	assert.Equal(t, "list", NewStartConfig(WithListMode()).Mode().String())
	assert.Equal(t, "unknown", StartMode(42).String())
}

func TestNewUI(t *testing.T) {
	cmd := &cobra.Command{}

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &TUI{}, NewUI(cmd, true))
}
