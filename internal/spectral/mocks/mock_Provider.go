// Package mocks provides test doubles for spectral providers.
package mocks

import (
	"context"

	model "github.com/sells-group/verdant/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockProvider is a mock type for the Provider interface.
type MockProvider struct {
	mock.Mock
}

// Samples provides a mock function with given fields: ctx, cell, year
func (_m *MockProvider) Samples(ctx context.Context, cell model.Cell, year int) (*model.SampleSet, error) {
	ret := _m.Called(ctx, cell, year)

	if len(ret) == 0 {
		panic("no return value specified for Samples")
	}

	var r0 *model.SampleSet
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, model.Cell, int) (*model.SampleSet, error)); ok {
		return rf(ctx, cell, year)
	}
	if rf, ok := ret.Get(0).(func(context.Context, model.Cell, int) *model.SampleSet); ok {
		r0 = rf(ctx, cell, year)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.SampleSet)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, model.Cell, int) error); ok {
		r1 = rf(ctx, cell, year)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// Name provides a mock function with no fields
func (_m *MockProvider) Name() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Name")
	}

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// NewMockProvider creates a new instance of MockProvider.
func NewMockProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProvider {
	mock := &MockProvider{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
