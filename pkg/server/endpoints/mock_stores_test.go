package endpoints

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockHealthStore is a mock implementation of store.HealthStore
type MockHealthStore struct {
	mock.Mock
}

func NewMockHealthStore() *MockHealthStore {
	return &MockHealthStore{}
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) map[string]error {
	args := m.Called()
	return args.Get(0).(map[string]error)
}
