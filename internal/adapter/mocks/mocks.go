// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"
	"os"

	"github.com/stretchr/testify/mock"

	"playvars.dev/pkg/playvars/internal/adapter"
	"playvars.dev/pkg/playvars/internal/jinja"
	m "playvars.dev/pkg/playvars/internal/model"
)

// MockTemplateFSAdapter is a mock implementation of adapter.TemplateFSAdapter.
type MockTemplateFSAdapter struct {
	mock.Mock
}

// NewMockTemplateFSAdapter creates a mock whose expectations are asserted on cleanup.
func NewMockTemplateFSAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTemplateFSAdapter {
	mock := &MockTemplateFSAdapter{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockTemplateFSAdapter) Walk(root m.Path, recursive bool, fn adapter.FilepathWalkFunc) error {
	ret := _m.Called(root, recursive, fn)
	return ret.Error(0)
}

func (_m *MockTemplateFSAdapter) ReadFile(path m.Path) ([]byte, error) {
	ret := _m.Called(path)

	var data []byte
	if v := ret.Get(0); v != nil {
		data = v.([]byte)
	}

	return data, ret.Error(1)
}

func (_m *MockTemplateFSAdapter) HashFile(path m.Path) (string, error) {
	ret := _m.Called(path)
	return ret.String(0), ret.Error(1)
}

func (_m *MockTemplateFSAdapter) FileInfo(path m.Path) (os.FileInfo, error) {
	ret := _m.Called(path)

	var info os.FileInfo
	if v := ret.Get(0); v != nil {
		info = v.(os.FileInfo)
	}

	return info, ret.Error(1)
}

func (_m *MockTemplateFSAdapter) GetChannel(ctx context.Context, roots []m.Path, threads int, opts adapter.DiscoverOptions) (<-chan m.Source, <-chan error) {
	ret := _m.Called(ctx, roots, threads, opts)

	var sources <-chan m.Source
	if v := ret.Get(0); v != nil {
		sources = v.(<-chan m.Source)
	}

	var errs <-chan error
	if v := ret.Get(1); v != nil {
		errs = v.(<-chan error)
	}

	return sources, errs
}

func (_m *MockTemplateFSAdapter) RelPath(base, target m.Path) (m.Path, error) {
	ret := _m.Called(base, target)
	return ret.Get(0).(m.Path), ret.Error(1)
}

func (_m *MockTemplateFSAdapter) JoinPath(elem ...string) m.Path {
	ret := _m.Called(elem)
	return ret.Get(0).(m.Path)
}

// MockTemplateAdapter is a mock implementation of adapter.TemplateAdapter.
type MockTemplateAdapter struct {
	mock.Mock
}

// NewMockTemplateAdapter creates a mock whose expectations are asserted on cleanup.
func NewMockTemplateAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTemplateAdapter {
	mock := &MockTemplateAdapter{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockTemplateAdapter) Parse(path m.Path, src []byte) (*jinja.Template, error) {
	ret := _m.Called(path, src)

	var tmpl *jinja.Template
	if v := ret.Get(0); v != nil {
		tmpl = v.(*jinja.Template)
	}

	return tmpl, ret.Error(1)
}

// MockReportStore is a mock implementation of adapter.ReportStore.
type MockReportStore struct {
	mock.Mock
}

// NewMockReportStore creates a mock whose expectations are asserted on cleanup.
func NewMockReportStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportStore {
	mock := &MockReportStore{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockReportStore) SaveReports(path m.Path, reports []m.Report) error {
	ret := _m.Called(path, reports)
	return ret.Error(0)
}

func (_m *MockReportStore) LoadReports(path m.Path) ([]m.Report, error) {
	ret := _m.Called(path)

	var reports []m.Report
	if v := ret.Get(0); v != nil {
		reports = v.([]m.Report)
	}

	return reports, ret.Error(1)
}

func (_m *MockReportStore) CheckUpdates(path m.Path, sources []m.Source, config string) ([]m.Source, error) {
	ret := _m.Called(path, sources, config)

	var changed []m.Source
	if v := ret.Get(0); v != nil {
		changed = v.([]m.Source)
	}

	return changed, ret.Error(1)
}

func (_m *MockReportStore) CleanReports(path m.Path, sources []m.Source) error {
	ret := _m.Called(path, sources)
	return ret.Error(0)
}

var (
	_ adapter.TemplateFSAdapter = (*MockTemplateFSAdapter)(nil)
	_ adapter.TemplateAdapter   = (*MockTemplateAdapter)(nil)
	_ adapter.ReportStore       = (*MockReportStore)(nil)
)
