// Package mocks provides test doubles for the sentinelhub client.
package mocks

import (
	"context"

	sentinelhub "github.com/sells-group/verdant/pkg/sentinelhub"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Statistics provides a mock function with given fields: ctx, req
func (_m *MockClient) Statistics(ctx context.Context, req *sentinelhub.StatsRequest) (*sentinelhub.StatsResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Statistics")
	}

	var r0 *sentinelhub.StatsResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, *sentinelhub.StatsRequest) (*sentinelhub.StatsResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, *sentinelhub.StatsRequest) *sentinelhub.StatsResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*sentinelhub.StatsResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, *sentinelhub.StatsRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// AreaSamples provides a mock function with given fields: ctx, q
func (_m *MockClient) AreaSamples(ctx context.Context, q sentinelhub.AreaQuery) (*sentinelhub.AreaResult, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for AreaSamples")
	}

	var r0 *sentinelhub.AreaResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, sentinelhub.AreaQuery) (*sentinelhub.AreaResult, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, sentinelhub.AreaQuery) *sentinelhub.AreaResult); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*sentinelhub.AreaResult)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, sentinelhub.AreaQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
