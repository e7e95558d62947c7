package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockListener struct {
	mock.Mock
}

func (m *MockListener) ShutdownWithContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
