package adapter

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	m "playvars.dev/pkg/playvars/internal/model"
)

const reportExtension = ".yaml"

// ReportStore persists one report per template in a reports directory.
type ReportStore interface {
	// SaveReports writes reports, replacing any stored report of the same template.
	SaveReports(path m.Path, reports []m.Report) error
	// LoadReports returns every stored report ordered by template path. A
	// missing directory holds no reports.
	LoadReports(path m.Path) ([]m.Report, error)
	// CheckUpdates returns the sources whose stored report is missing or was
	// computed from a different hash or under a different config fingerprint,
	// followed by the stored sources whose template no longer exists on disk.
	CheckUpdates(path m.Path, sources []m.Source, config string) ([]m.Source, error)
	// CleanReports removes the stored reports of sources.
	CleanReports(path m.Path, sources []m.Source) error
}

// YAMLReportStore implements ReportStore with one YAML document per template.
type YAMLReportStore struct{}

// NewReportStore constructs a YAMLReportStore.
func NewReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReports writes each report to the reports directory.
func (s *YAMLReportStore) SaveReports(path m.Path, reports []m.Report) error {
	if err := os.MkdirAll(string(path), 0o750); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}

	for _, report := range reports {
		if report.Source.Origin == nil {
			continue
		}

		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("encode report for %s: %w", report.Source.Origin.Path, err)
		}

		target := filepath.Join(string(path), reportFileName(report.Source.Origin.Path))
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write report %s: %w", target, err)
		}
	}

	return nil
}

// LoadReports reads every report stored under path.
func (s *YAMLReportStore) LoadReports(path m.Path) ([]m.Report, error) {
	entries, err := os.ReadDir(string(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}

	var reports []m.Report

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), reportExtension) {
			continue
		}

		file := filepath.Join(string(path), entry.Name())

		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read report %s: %w", file, err)
		}

		var report m.Report
		if err := yaml.Unmarshal(data, &report); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", file, err)
		}

		if report.Source.Origin == nil {
			continue
		}

		reports = append(reports, report)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Source.Origin.Path < reports[j].Source.Origin.Path
	})

	return reports, nil
}

// CheckUpdates compares sources with the stored reports by hash and config
// fingerprint.
func (s *YAMLReportStore) CheckUpdates(path m.Path, sources []m.Source, config string) ([]m.Source, error) {
	stored, err := s.LoadReports(path)
	if err != nil {
		return nil, err
	}

	hashes := make(map[m.Path]string, len(stored))
	for _, report := range stored {
		if report.Config != config {
			continue
		}

		hashes[report.Source.Origin.Path] = report.Source.Origin.Hash
	}

	current := make(map[m.Path]struct{}, len(sources))
	changed := make([]m.Source, 0)

	for _, src := range sources {
		if src.Origin == nil {
			continue
		}

		current[src.Origin.Path] = struct{}{}

		if hash, ok := hashes[src.Origin.Path]; !ok || hash != src.Origin.Hash {
			changed = append(changed, src)
		}
	}

	for _, report := range stored {
		if _, ok := current[report.Source.Origin.Path]; ok {
			continue
		}

		if _, err := os.Stat(string(report.Source.Origin.Path)); errors.Is(err, fs.ErrNotExist) {
			changed = append(changed, report.Source)
		}
	}

	return changed, nil
}

// CleanReports deletes the stored reports of sources.
func (s *YAMLReportStore) CleanReports(path m.Path, sources []m.Source) error {
	for _, src := range sources {
		if src.Origin == nil {
			continue
		}

		target := filepath.Join(string(path), reportFileName(src.Origin.Path))
		if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove report %s: %w", target, err)
		}
	}

	return nil
}

func reportFileName(path m.Path) string {
	sum := sha256.Sum256([]byte(filepath.Clean(string(path))))

	return fmt.Sprintf("%x%s", sum[:12], reportExtension)
}
