package mcp

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	result   *domain.AnswerResult
	err      error
	question string
}

func (m *mockAnswerService) Ask(_ context.Context, question string) (*domain.AnswerResult, error) {
	m.question = question
	return m.result, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	chunks []domain.RetrievedChunk
	err    error
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string) ([]domain.RetrievedChunk, error) {
	return m.chunks, m.err
}
