package api

import (
	"context"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	mu        sync.Mutex
	result    *domain.AnswerResult
	err       error
	panicWith any
	questions []string
}

func (m *mockAnswerService) Ask(_ context.Context, question string) (*domain.AnswerResult, error) {
	m.mu.Lock()
	m.questions = append(m.questions, question)
	m.mu.Unlock()
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.result, m.err
}

func (m *mockAnswerService) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.questions...)
}
