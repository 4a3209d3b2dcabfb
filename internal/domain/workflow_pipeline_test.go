package domain_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"playvars.dev/pkg/playvars/internal/adapter"
	adaptermocks "playvars.dev/pkg/playvars/internal/adapter/mocks"
	"playvars.dev/pkg/playvars/internal/controller"
	controllermocks "playvars.dev/pkg/playvars/internal/controller/mocks"
	"playvars.dev/pkg/playvars/internal/domain"
	domainmocks "playvars.dev/pkg/playvars/internal/domain/mocks"
	m "playvars.dev/pkg/playvars/internal/model"
	"playvars.dev/pkg/playvars/internal/schema"
)

type pipelineMocks struct {
	fs       *adaptermocks.MockTemplateFSAdapter
	store    *adaptermocks.MockReportStore
	ui       *controllermocks.MockUI
	inferrer *domainmocks.MockInferrer
}

func newPipeline(t *testing.T) (domain.Workflow, pipelineMocks) {
	t.Helper()

	mocks := pipelineMocks{
		fs:       adaptermocks.NewMockTemplateFSAdapter(t),
		store:    adaptermocks.NewMockReportStore(t),
		ui:       controllermocks.NewMockUI(t),
		inferrer: domainmocks.NewMockInferrer(t),
	}

	return domain.NewWorkflow(mocks.fs, mocks.store, mocks.ui, mocks.inferrer), mocks
}

func source(path, hash string) m.Source {
	return m.Source{Origin: &m.File{Path: m.Path(path), Hash: hash}}
}

func reportFor(src m.Source, names ...string) m.Report {
	report := m.Report{Source: src, Playbook: src.Name(), PlaybookDir: src.Dir()}
	for _, name := range names {
		report.Variables = append(report.Variables, m.Variable{Name: name, Type: "scalar"})
	}

	return report
}

func expectSources(fs *adaptermocks.MockTemplateFSAdapter, sources ...m.Source) {
	sourceChan := make(chan m.Source, len(sources))
	for _, src := range sources {
		sourceChan <- src
	}

	close(sourceChan)

	errChan := make(chan error)
	close(errChan)

	fs.On("GetChannel", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return((<-chan m.Source)(sourceChan), (<-chan error)(errChan)).Once()
}

func expectListUI(ui *controllermocks.MockUI) {
	ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("Close", mock.Anything).Return().Once()
}

func reportPaths(reports []m.Report) []m.Path {
	paths := make([]m.Path, 0, len(reports))
	for _, r := range reports {
		paths = append(paths, r.Source.Origin.Path)
	}

	return paths
}

func TestWorkflowPipeline_List_WithoutCache(t *testing.T) {
	wf, mocks := newPipeline(t)

	web := source("site/web.yml", "h1")
	db := source("site/db.yml", "h2")
	dbReport := reportFor(db)
	dbReport.Conflict = &m.Conflict{Kind: "merge-conflict", Message: "boom"}

	expectListUI(mocks.ui)
	expectSources(mocks.fs, web, db)

	mocks.inferrer.On("Infer", mock.Anything, web).Return(reportFor(web, "hosts", "port"), nil).Once()
	mocks.inferrer.On("Infer", mock.Anything, db).Return(dbReport, nil).Once()

	mocks.store.On("SaveReports", m.Path(".playvars"), mock.MatchedBy(func(reports []m.Report) bool {
		return len(reports) == 2
	})).Return(nil).Once()

	mocks.ui.On("DisplayReports", mock.Anything, mock.MatchedBy(func(reports []m.Report) bool {
		return assert.ObjectsAreEqual([]m.Path{"site/db.yml", "site/web.yml"}, reportPaths(reports))
	})).Return(nil).Once()
	mocks.ui.On("DisplaySummary", mock.Anything, m.Summary{Templates: 2, Variables: 2, Conflicts: 1}).Return().Once()

	err := wf.List(context.Background(), domain.ListArgs{
		Paths:   []m.Path{"site/..."},
		Reports: ".playvars",
		Threads: 2,
	})
	require.NoError(t, err)
}

func TestWorkflowPipeline_List_UsesCache(t *testing.T) {
	wf, mocks := newPipeline(t)

	edited := source("edited.yml", "new")
	kept := source("kept.yml", "same")
	gone := source("gone.yml", "old")

	expectListUI(mocks.ui)
	expectSources(mocks.fs, edited, kept)

	mocks.inferrer.On("Fingerprint").Return("conditions_as_boolean=false,index_container=list").Once()
	mocks.store.On("CheckUpdates", m.Path(".playvars"), []m.Source{edited, kept}, "conditions_as_boolean=false,index_container=list").
		Return([]m.Source{edited, gone}, nil).Once()
	mocks.store.On("CleanReports", m.Path(".playvars"), []m.Source{gone}).Return(nil).Once()

	mocks.inferrer.On("Infer", mock.Anything, edited).Return(reportFor(edited, "a"), nil).Once()
	mocks.store.On("SaveReports", m.Path(".playvars"), []m.Report{reportFor(edited, "a")}).Return(nil).Once()
	mocks.store.On("LoadReports", m.Path(".playvars")).
		Return([]m.Report{reportFor(source("edited.yml", "old"), "stale"), reportFor(kept, "b", "c")}, nil).Once()

	mocks.ui.On("DisplayReports", mock.Anything, []m.Report{reportFor(edited, "a"), reportFor(kept, "b", "c")}).Return(nil).Once()
	mocks.ui.On("DisplaySummary", mock.Anything, m.Summary{Templates: 2, Cached: 1, Variables: 3}).Return().Once()

	err := wf.List(context.Background(), domain.ListArgs{
		UseCache: true,
		Reports:  ".playvars",
		Threads:  1,
	})
	require.NoError(t, err)
}

func TestWorkflowPipeline_List_StartError(t *testing.T) {
	wf, mocks := newPipeline(t)
	startErr := errors.New("start failed")

	mocks.ui.On("Start", mock.Anything, mock.Anything).Return(startErr).Once()

	err := wf.List(context.Background(), domain.ListArgs{})
	assert.ErrorIs(t, err, startErr)
}

func TestWorkflowPipeline_List_DiscoveryError(t *testing.T) {
	wf, mocks := newPipeline(t)
	discoverErr := errors.New("root path error")

	mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	mocks.ui.On("Close", mock.Anything).Return().Once()

	sourceChan := make(chan m.Source)
	close(sourceChan)

	errChan := make(chan error, 1)
	errChan <- discoverErr
	close(errChan)

	mocks.fs.On("GetChannel", mock.Anything, []m.Path{"missing"}, 1, mock.Anything).
		Return((<-chan m.Source)(sourceChan), (<-chan error)(errChan)).Once()

	err := wf.List(context.Background(), domain.ListArgs{Paths: []m.Path{"missing"}})
	require.ErrorIs(t, err, discoverErr)
	assert.Contains(t, err.Error(), "infer templates")
}

func TestWorkflowPipeline_List_InferError(t *testing.T) {
	wf, mocks := newPipeline(t)
	readErr := errors.New("permission denied")
	secret := source("secret.yml", "h")

	mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	mocks.ui.On("Close", mock.Anything).Return().Once()
	expectSources(mocks.fs, secret)

	mocks.inferrer.On("Infer", mock.Anything, secret).Return(m.Report{}, readErr).Once()

	err := wf.List(context.Background(), domain.ListArgs{Threads: 1})
	require.ErrorIs(t, err, readErr)
	assert.Contains(t, err.Error(), "infer secret.yml")
}

func TestWorkflowPipeline_Infer(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		wf, mocks := newPipeline(t)
		content := []byte("{{ name }}")
		v := schema.DictOf(map[string]*schema.Var{"name": schema.Scalar()})

		mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ui.On("Close", mock.Anything).Return().Once()
		mocks.fs.On("ReadFile", m.Path("motd.j2")).Return(content, nil).Once()
		mocks.inferrer.On("Schema", m.Path("motd.j2"), content).Return(v, nil).Once()

		want, err := domain.RenderSchema(v, domain.FormatJSON)
		require.NoError(t, err)
		mocks.ui.On("DisplaySchema", mock.Anything, want).Return(nil).Once()

		require.NoError(t, wf.Infer(context.Background(), domain.InferArgs{Path: "motd.j2", Format: domain.FormatJSON}))
	})

	t.Run("stdin conflict", func(t *testing.T) {
		wf, mocks := newPipeline(t)
		content := []byte("{{ x.a }}{{ x[0] }}")
		_, inferErr := schema.InferSource(string(content), schema.DefaultConfig())
		require.Error(t, inferErr)

		mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ui.On("Close", mock.Anything).Return().Once()
		mocks.inferrer.On("Schema", domain.StdinPath, content).Return(nil, inferErr).Once()
		mocks.ui.On("DisplayConflict", mock.Anything, "-", domain.ToConflict(inferErr)).Return().Once()

		err := wf.Infer(context.Background(), domain.InferArgs{Path: domain.StdinPath, Content: content})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("read error", func(t *testing.T) {
		wf, mocks := newPipeline(t)
		readErr := errors.New("no such file")

		mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ui.On("Close", mock.Anything).Return().Once()
		mocks.fs.On("ReadFile", m.Path("missing.j2")).Return(nil, readErr).Once()

		err := wf.Infer(context.Background(), domain.InferArgs{Path: "missing.j2"})
		assert.ErrorIs(t, err, readErr)
	})
}

func TestWorkflowPipeline_View(t *testing.T) {
	wf, mocks := newPipeline(t)
	a := reportFor(source("b.yml", "1"), "x")
	b := reportFor(source("a.yml", "2"), "y", "z")

	expectListUI(mocks.ui)
	mocks.store.On("LoadReports", m.Path("reports")).Return([]m.Report{a, b}, nil).Once()
	mocks.ui.On("DisplayReports", mock.Anything, []m.Report{b, a}).Return(nil).Once()
	mocks.ui.On("DisplaySummary", mock.Anything, m.Summary{Templates: 2, Cached: 2, Variables: 3}).Return().Once()

	require.NoError(t, wf.View(context.Background(), domain.ViewArgs{Reports: "reports"}))
}

func TestWorkflowPipeline_View_LoadError(t *testing.T) {
	wf, mocks := newPipeline(t)
	loadErr := errors.New("decode report")

	mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	mocks.ui.On("Close", mock.Anything).Return().Once()
	mocks.store.On("LoadReports", m.Path("reports")).Return(nil, loadErr).Once()

	err := wf.View(context.Background(), domain.ViewArgs{Reports: "reports"})
	assert.ErrorIs(t, err, loadErr)
}

func TestWorkflowPipeline_Diff(t *testing.T) {
	t.Run("changed schema", func(t *testing.T) {
		wf, mocks := newPipeline(t)
		stored := reportFor(source("./site.yml", "old"), "hosts")
		current := reportFor(source("site.yml", "new"), "hosts", "port")

		mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ui.On("Close", mock.Anything).Return().Once()
		mocks.store.On("LoadReports", m.Path(".playvars")).Return([]m.Report{stored}, nil).Once()
		mocks.fs.On("HashFile", m.Path("site.yml")).Return("new", nil).Once()
		mocks.inferrer.On("Infer", mock.Anything, source("site.yml", "new")).Return(current, nil).Once()
		mocks.ui.On("DisplayDiff", mock.Anything, "site.yml", mock.MatchedBy(func(diff string) bool {
			return strings.Contains(diff, "+++ site.yml (current)") &&
				strings.Contains(diff, "name: port")
		})).Return(nil).Once()

		require.NoError(t, wf.Diff(context.Background(), domain.DiffArgs{Path: "site.yml", Reports: ".playvars"}))
	})

	t.Run("no stored report", func(t *testing.T) {
		wf, mocks := newPipeline(t)

		mocks.ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
		mocks.ui.On("Close", mock.Anything).Return().Once()
		mocks.store.On("LoadReports", m.Path(".playvars")).Return(nil, nil).Once()

		err := wf.Diff(context.Background(), domain.DiffArgs{Path: "site.yml", Reports: ".playvars"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no stored report for site.yml")
	})

	t.Run("stdin is rejected", func(t *testing.T) {
		wf, _ := newPipeline(t)

		err := wf.Diff(context.Background(), domain.DiffArgs{Path: domain.StdinPath})
		require.Error(t, err)
	})
}

// TestWorkflow_ListExamples runs the real adapters over the playbook fixtures.
func TestWorkflow_ListExamples(t *testing.T) {
	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = previous })

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})

	fs := adapter.NewLocalTemplateFSAdapter()
	store := adapter.NewReportStore()
	inferrer := domain.NewInferrer(fs, adapter.NewLocalTemplateAdapter(), schema.DefaultConfig())
	wf := domain.NewWorkflow(fs, store, controller.NewSimpleUI(cmd), inferrer)

	reports := m.Path(filepath.Join(t.TempDir(), "reports"))
	args := domain.ListArgs{
		Paths: []m.Path{"../../examples/site/..."},
		Options: adapter.DiscoverOptions{
			Extensions:   []string{".yml", ".yaml", ".j2"},
			SkipDirs:     []string{"group_vars"},
			SkipSuffixes: []string{"handlers", "vars"},
		},
		UseCache: true,
		Reports:  reports,
		Threads:  4,
	}

	require.NoError(t, wf.List(context.Background(), args))

	stored, err := store.LoadReports(reports)
	require.NoError(t, err)

	byName := map[string]m.Report{}
	for _, r := range stored {
		byName[r.Playbook] = r
	}

	require.Len(t, byName, 4)
	assert.Equal(t, []string{"item", "packages", "port", "target_hosts"}, byName["site.yml"].VariableNames())
	assert.Equal(t, []string{"locations", "nginx_port", "server_names", "ssl"}, byName["nginx.conf.j2"].VariableNames())
	require.NotNil(t, byName["release.yml"].Conflict)
	assert.Equal(t, string(schema.ConflictMerge), byName["release.yml"].Conflict.Kind)
	require.NotNil(t, byName["unclosed.j2"].Conflict)
	assert.Equal(t, domain.ConflictSyntax, byName["unclosed.j2"].Conflict.Kind)

	assert.Contains(t, out.String(), "4 template(s), 0 cached")

	out.Reset()
	require.NoError(t, wf.List(context.Background(), args))
	assert.Contains(t, out.String(), "4 template(s), 4 cached")
}

func TestWorkflow_ListReinfersWhenConfigChanges(t *testing.T) {
	work := t.TempDir()
	template := filepath.Join(work, "site.yml")
	require.NoError(t, os.WriteFile(template, []byte("{% if ready %}{{ motd }}{% endif %}\n"), 0o600))

	reports := m.Path(filepath.Join(work, "reports"))
	args := domain.ListArgs{
		Paths:    []m.Path{m.Path(template)},
		Options:  adapter.DiscoverOptions{Extensions: []string{".yml"}},
		UseCache: true,
		Reports:  reports,
		Threads:  1,
	}

	run := func(config schema.Config) (m.Report, string) {
		t.Helper()

		out := &bytes.Buffer{}
		cmd := &cobra.Command{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})

		fs := adapter.NewLocalTemplateFSAdapter()
		store := adapter.NewReportStore()
		wf := domain.NewWorkflow(fs, store, controller.NewSimpleUI(cmd), domain.NewInferrer(fs, adapter.NewLocalTemplateAdapter(), config))

		require.NoError(t, wf.List(context.Background(), args))

		stored, err := store.LoadReports(reports)
		require.NoError(t, err)
		require.Len(t, stored, 1)

		return stored[0], out.String()
	}

	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = previous })

	first, out := run(schema.DefaultConfig())
	assert.Contains(t, out, "1 template(s), 0 cached")
	assert.Equal(t, schema.DefaultConfig().Fingerprint(), first.Config)
	assert.Equal(t, "unknown", variableType(first, "ready"))

	_, out = run(schema.DefaultConfig())
	assert.Contains(t, out, "1 template(s), 1 cached")

	boolConfig := schema.Config{ConditionsAsBoolean: true, IndexContainer: schema.ContainerList}

	second, out := run(boolConfig)
	assert.Contains(t, out, "1 template(s), 0 cached")
	assert.Equal(t, boolConfig.Fingerprint(), second.Config)
	assert.Equal(t, "boolean", variableType(second, "ready"))
}

func variableType(report m.Report, name string) string {
	for _, v := range report.Variables {
		if v.Name == name {
			return v.Type
		}
	}

	return ""
}
