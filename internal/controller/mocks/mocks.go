// Package mocks provides testify mocks for the controller interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"playvars.dev/pkg/playvars/internal/controller"
	m "playvars.dev/pkg/playvars/internal/model"
)

// MockUI is a mock implementation of controller.UI.
type MockUI struct {
	mock.Mock
}

// NewMockUI creates a mock whose expectations are asserted on cleanup.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mock := &MockUI{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockUI) Start(ctx context.Context, options ...controller.StartOption) error {
	ret := _m.Called(ctx, options)
	return ret.Error(0)
}

func (_m *MockUI) Close(ctx context.Context) {
	_m.Called(ctx)
}

func (_m *MockUI) Wait(ctx context.Context) {
	_m.Called(ctx)
}

func (_m *MockUI) DisplayReports(ctx context.Context, reports []m.Report) error {
	ret := _m.Called(ctx, reports)
	return ret.Error(0)
}

func (_m *MockUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	_m.Called(ctx, summary)
}

func (_m *MockUI) DisplaySchema(ctx context.Context, doc []byte) error {
	ret := _m.Called(ctx, doc)
	return ret.Error(0)
}

func (_m *MockUI) DisplayConflict(ctx context.Context, name string, conflict m.Conflict) {
	_m.Called(ctx, name, conflict)
}

func (_m *MockUI) DisplayDiff(ctx context.Context, name string, diff string) error {
	ret := _m.Called(ctx, name, diff)
	return ret.Error(0)
}

var _ controller.UI = (*MockUI)(nil)
