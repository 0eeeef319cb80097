package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zsafwan/pr-contacts/internal/classify"
	"github.com/zsafwan/pr-contacts/internal/model"
)

// --- Mail Source Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawEmail, error) {
	args := m.Called(ctx, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RawEmail), args.Error(1)
}

// --- Oracle Mock ---

type mockOracle struct {
	mock.Mock
}

func (m *mockOracle) Classify(ctx context.Context, ev classify.Evidence, known []string) (*classify.Result, error) {
	args := m.Called(ctx, ev, known)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classify.Result), args.Error(1)
}

func (m *mockOracle) ClassifyBatch(ctx context.Context, evs []classify.Evidence, known []string) ([]classify.Result, error) {
	args := m.Called(ctx, evs, known)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]classify.Result), args.Error(1)
}
