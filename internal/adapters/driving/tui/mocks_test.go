package tui

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// MockAnswerService implements driving.AnswerService for testing.
type MockAnswerService struct {
	AskFunc func(ctx context.Context, question string) (*domain.AnswerResult, error)
}

func (m *MockAnswerService) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question)
	}
	return &domain.AnswerResult{}, nil
}

// MockRetrievalService implements driving.RetrievalService for testing.
type MockRetrievalService struct {
	RetrieveFunc func(ctx context.Context, question string) ([]domain.RetrievedChunk, error)
}

func (m *MockRetrievalService) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	if m.RetrieveFunc != nil {
		return m.RetrieveFunc(ctx, question)
	}
	return []domain.RetrievedChunk{}, nil
}
