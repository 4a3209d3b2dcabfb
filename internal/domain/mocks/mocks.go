// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"playvars.dev/pkg/playvars/internal/domain"
	m "playvars.dev/pkg/playvars/internal/model"
	"playvars.dev/pkg/playvars/internal/schema"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a mock whose expectations are asserted on cleanup.
func NewMockWorkflow(t testingT) *MockWorkflow {
	mock := &MockWorkflow{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockWorkflow) List(ctx context.Context, args domain.ListArgs) error {
	return _m.Called(ctx, args).Error(0)
}

func (_m *MockWorkflow) Infer(ctx context.Context, args domain.InferArgs) error {
	return _m.Called(ctx, args).Error(0)
}

func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	return _m.Called(ctx, args).Error(0)
}

func (_m *MockWorkflow) Diff(ctx context.Context, args domain.DiffArgs) error {
	return _m.Called(ctx, args).Error(0)
}

// MockInferrer is a mock implementation of domain.Inferrer.
type MockInferrer struct {
	mock.Mock
}

// NewMockInferrer creates a mock whose expectations are asserted on cleanup.
func NewMockInferrer(t testingT) *MockInferrer {
	mock := &MockInferrer{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

func (_m *MockInferrer) Schema(path m.Path, src []byte) (*schema.Var, error) {
	ret := _m.Called(path, src)

	var v *schema.Var
	if got := ret.Get(0); got != nil {
		v = got.(*schema.Var)
	}

	return v, ret.Error(1)
}

func (_m *MockInferrer) Report(source m.Source, src []byte) m.Report {
	return _m.Called(source, src).Get(0).(m.Report)
}

func (_m *MockInferrer) Infer(ctx context.Context, source m.Source) (m.Report, error) {
	ret := _m.Called(ctx, source)
	return ret.Get(0).(m.Report), ret.Error(1)
}

func (_m *MockInferrer) Fingerprint() string {
	return _m.Called().String(0)
}

var (
	_ domain.Workflow = (*MockWorkflow)(nil)
	_ domain.Inferrer = (*MockInferrer)(nil)
)
