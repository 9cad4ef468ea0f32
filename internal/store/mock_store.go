package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reddit-embeddings/internal/embeddings"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SetPlotEmbedding(ctx context.Context, id any, vector embeddings.Vector) (int64, error) {
	args := m.Called(ctx, id, vector)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
