package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"playvars.dev/pkg/playvars/internal/adapter"
	"playvars.dev/pkg/playvars/internal/controller"
	m "playvars.dev/pkg/playvars/internal/model"
)

type workflowPipeline struct {
	adapter.ReportStore
	adapter.TemplateFSAdapter
	controller.UI
	Inferrer
}

// NewWorkflow creates a Workflow using the pipeline pattern with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.TemplateFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	inferrer Inferrer,
) Workflow {
	return &workflowPipeline{
		TemplateFSAdapter: fsAdapter,
		ReportStore:       reportStore,
		UI:                ui,
		Inferrer:          inferrer,
	}
}

// List discovers templates, infers the changed ones in parallel, stores the
// fresh reports and displays every report with a summary.
func (w *workflowPipeline) List(ctx context.Context, args ListArgs) error {
	threads := args.Threads
	if threads < 1 {
		threads = 1
	}

	if err := w.Start(ctx, controller.WithListMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	reports, summary, err := w.collectReports(ctx, args, threads)
	if err != nil {
		w.Close(ctx)
		slog.Error("Failed to infer templates", "error", err)

		return fmt.Errorf("infer templates: %w", err)
	}

	if err := w.DisplayReports(ctx, reports); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display reports", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	w.DisplaySummary(ctx, summary)

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

func (w *workflowPipeline) collectReports(ctx context.Context, args ListArgs, threads int) ([]m.Report, m.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := args.Paths
	if len(paths) == 0 {
		paths = []m.Path{"./..."}
	}

	sourcesChannel, sourcesErrorChannel := w.GetChannel(ctx, paths, threads, args.Options)

	var unchanged []m.Source

	changedChannel, changedErrorChannel := w.getChangedSourcesChannel(ctx, args, threads, sourcesChannel, func(src m.Source) {
		unchanged = append(unchanged, src)
	})

	reportsChannel, reportsErrorChannel := w.generateReportsChannel(ctx, changedChannel, threads)

	errorChannel := mergeErrorChannels(
		mergeErrorChannels(sourcesErrorChannel, changedErrorChannel),
		reportsErrorChannel,
	)

	var fresh []m.Report

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case report, ok := <-reportsChannel:
				if !ok {
					return nil
				}

				fresh = append(fresh, report)
			}
		}
	})

	group.Go(func() error {
		select {
		case <-groupCtx.Done():
			return groupCtx.Err()
		case err, ok := <-errorChannel:
			if !ok || err == nil {
				return nil
			}

			return err
		}
	})

	if err := group.Wait(); err != nil {
		return nil, m.Summary{}, err
	}

	if args.Reports != "" && len(fresh) > 0 {
		if err := w.SaveReports(args.Reports, fresh); err != nil {
			return nil, m.Summary{}, fmt.Errorf("save reports: %w", err)
		}
	}

	cached, err := w.cachedReports(args, unchanged)
	if err != nil {
		return nil, m.Summary{}, err
	}

	var summary m.Summary

	all := make([]m.Report, 0, len(fresh)+len(cached))
	for _, report := range append(fresh, cached...) {
		summary.Add(report)
		all = append(all, report)
	}

	summary.Cached = len(cached)

	sortReports(all)

	return all, summary, nil
}

func (w *workflowPipeline) cachedReports(args ListArgs, unchanged []m.Source) ([]m.Report, error) {
	if len(unchanged) == 0 {
		return nil, nil
	}

	stored, err := w.LoadReports(args.Reports)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	byPath := make(map[string]m.Report, len(stored))
	for _, report := range stored {
		byPath[cleanPath(report.Source.Origin.Path)] = report
	}

	cached := make([]m.Report, 0, len(unchanged))

	for _, src := range unchanged {
		report, ok := byPath[cleanPath(src.Origin.Path)]
		if !ok {
			return nil, fmt.Errorf("stored report for %s disappeared", src.Origin.Path)
		}

		cached = append(cached, report)
	}

	return cached, nil
}

// getChangedSourcesChannel forwards the sources that need inference. With
// caching enabled every source is buffered first so the store can compare
// hashes and config fingerprints; unchanged ones are handed to onUnchanged before the output closes.
func (w *workflowPipeline) getChangedSourcesChannel(ctx context.Context, args ListArgs, threads int, sources <-chan m.Source, onUnchanged func(m.Source)) (<-chan m.Source, <-chan error) {
	changedChannel := make(chan m.Source, threads)
	errorChannel := make(chan error, 1)

	go func() {
		defer close(changedChannel)
		defer close(errorChannel)

		if !args.UseCache || args.Reports == "" {
			for {
				select {
				case <-ctx.Done():
					errorChannel <- ctx.Err()
					return
				case source, ok := <-sources:
					if !ok {
						return
					}

					select {
					case <-ctx.Done():
						errorChannel <- ctx.Err()
						return
					case changedChannel <- source:
					}
				}
			}
		}

		var allSources []m.Source

	collect:
		for {
			select {
			case <-ctx.Done():
				errorChannel <- ctx.Err()
				return
			case source, ok := <-sources:
				if !ok {
					break collect
				}

				allSources = append(allSources, source)
			}
		}

		changedSources, err := w.getChangedSources(args, allSources)
		if err != nil {
			errorChannel <- err
			return
		}

		changedPaths := make(map[string]struct{}, len(changedSources))
		for _, src := range changedSources {
			changedPaths[cleanPath(src.Origin.Path)] = struct{}{}
		}

		for _, src := range allSources {
			if _, ok := changedPaths[cleanPath(src.Origin.Path)]; !ok {
				onUnchanged(src)
			}
		}

		for _, source := range changedSources {
			select {
			case <-ctx.Done():
				errorChannel <- ctx.Err()
				return
			case changedChannel <- source:
			}
		}
	}()

	return changedChannel, errorChannel
}

func (w *workflowPipeline) getChangedSources(args ListArgs, sources []m.Source) ([]m.Source, error) {
	changed, err := w.CheckUpdates(args.Reports, sources, w.Fingerprint())
	if err != nil {
		return nil, fmt.Errorf("check updates: %w", err)
	}

	currentByPath := buildSourcePathMap(sources)
	deleted, changedExisting := separateDeletedAndChanged(changed, currentByPath)

	if len(deleted) > 0 {
		slog.Info("removing reports of deleted templates", "count", len(deleted))

		if err := w.CleanReports(args.Reports, deleted); err != nil {
			return nil, fmt.Errorf("clean reports: %w", err)
		}
	}

	return changedExisting, nil
}

func buildSourcePathMap(sources []m.Source) map[string]m.Source {
	currentByPath := map[string]m.Source{}

	for _, src := range sources {
		if src.Origin != nil && src.Origin.Path != "" {
			currentByPath[cleanPath(src.Origin.Path)] = src
		}
	}

	return currentByPath
}

func separateDeletedAndChanged(changed []m.Source, currentByPath map[string]m.Source) ([]m.Source, []m.Source) {
	deleted := make([]m.Source, 0)
	changedExisting := make([]m.Source, 0)

	for _, src := range changed {
		if src.Origin == nil || src.Origin.Path == "" {
			continue
		}

		if current, ok := currentByPath[cleanPath(src.Origin.Path)]; ok {
			changedExisting = append(changedExisting, current)
		} else {
			deleted = append(deleted, src)
		}
	}

	return deleted, changedExisting
}

func (w *workflowPipeline) generateReportsChannel(ctx context.Context, sourcesChannel <-chan m.Source, threads int) (<-chan m.Report, <-chan error) {
	reportsChannel := make(chan m.Report, threads)
	errorChannel := make(chan error, 1)

	var group errgroup.Group
	group.SetLimit(threads)

	go func() {
		defer close(errorChannel)
		defer close(reportsChannel)

		for {
			select {
			case <-ctx.Done():
				for range sourcesChannel {
				}

				_ = group.Wait()

				return
			case source, ok := <-sourcesChannel:
				if !ok {
					if err := group.Wait(); err != nil {
						errorChannel <- err
					}

					return
				}

				currentSource := source

				group.Go(func() error {
					report, err := w.Inferrer.Infer(ctx, currentSource)
					if err != nil {
						return fmt.Errorf("infer %s: %w", currentSource.Origin.Path, err)
					}

					select {
					case <-ctx.Done():
						return ctx.Err()
					case reportsChannel <- report:
					}

					return nil
				})
			}
		}
	}()

	return reportsChannel, errorChannel
}

// Infer prints the schema of one template, or its conflict.
func (w *workflowPipeline) Infer(ctx context.Context, args InferArgs) error {
	if err := w.Start(ctx, controller.WithInferMode()); err != nil {
		return err
	}

	defer w.Close(ctx)

	src := args.Content
	source := m.Source{}

	if args.Path != StdinPath {
		content, err := w.ReadFile(args.Path)
		if err != nil {
			slog.Error("Failed to read template", "path", args.Path, "error", err)
			return fmt.Errorf("read template: %w", err)
		}

		src = content
		source.Origin = &m.File{Path: args.Path}
	}

	v, err := w.Schema(args.Path, src)
	if err != nil {
		w.DisplayConflict(ctx, source.Name(), ToConflict(err))
		return fmt.Errorf("%s: %w", source.Name(), ErrConflict)
	}

	doc, err := RenderSchema(v, args.Format)
	if err != nil {
		return fmt.Errorf("render schema: %w", err)
	}

	return w.DisplaySchema(ctx, doc)
}

// View displays the stored reports.
func (w *workflowPipeline) View(ctx context.Context, args ViewArgs) error {
	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	reports, err := w.LoadReports(args.Reports)
	if err != nil {
		w.Close(ctx)
		slog.Error("Failed to load reports", "error", err)

		return fmt.Errorf("load reports: %w", err)
	}

	sortReports(reports)

	if err := w.DisplayReports(ctx, reports); err != nil {
		w.Close(ctx)
		return fmt.Errorf("display: %w", err)
	}

	var summary m.Summary
	for _, report := range reports {
		summary.Add(report)
	}

	summary.Cached = summary.Templates
	w.DisplaySummary(ctx, summary)

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

// Diff compares the stored report of a template with a fresh inference.
func (w *workflowPipeline) Diff(ctx context.Context, args DiffArgs) error {
	if args.Path == StdinPath {
		return errors.New("diff needs a template file")
	}

	if err := w.Start(ctx, controller.WithDiffMode()); err != nil {
		return err
	}

	defer w.Close(ctx)

	stored, err := w.LoadReports(args.Reports)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}

	var (
		previous m.Report
		found    bool
	)

	for _, report := range stored {
		if cleanPath(report.Source.Origin.Path) == cleanPath(args.Path) {
			previous, found = report, true
			break
		}
	}

	if !found {
		return fmt.Errorf("no stored report for %s in %s", args.Path, args.Reports)
	}

	hash, err := w.HashFile(args.Path)
	if err != nil {
		return fmt.Errorf("hash template: %w", err)
	}

	current, err := w.Inferrer.Infer(ctx, m.Source{Origin: &m.File{Path: args.Path, Hash: hash}})
	if err != nil {
		return err
	}

	diff, err := RenderDiff(previous, current)
	if err != nil {
		return err
	}

	return w.DisplayDiff(ctx, string(args.Path), diff)
}

func sortReports(reports []m.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reportPath(reports[i]) < reportPath(reports[j])
	})
}

func reportPath(report m.Report) string {
	if report.Source.Origin == nil {
		return ""
	}

	return string(report.Source.Origin.Path)
}

func cleanPath(path m.Path) string {
	return filepath.Clean(string(path))
}

func mergeErrorChannels(ch1, ch2 <-chan error) <-chan error {
	merged := make(chan error, 1)

	go func() {
		defer close(merged)

		for ch1 != nil || ch2 != nil {
			select {
			case err, ok := <-ch1:
				if !ok {
					ch1 = nil
				} else {
					merged <- err
					return
				}
			case err, ok := <-ch2:
				if !ok {
					ch2 = nil
				} else {
					merged <- err
					return
				}
			}
		}
	}()

	return merged
}
