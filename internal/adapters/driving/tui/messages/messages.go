// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Mode identifies what the ask view is showing.
type Mode int

const (
	// ModeInput is typing a question.
	ModeInput Mode = iota
	// ModeAnswer shows a generated answer and its context.
	ModeAnswer
	// ModePassages lists ranked passages without an answer.
	ModePassages
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeAnswer:
		return "answer"
	case ModePassages:
		return "passages"
	default:
		return "unknown"
	}
}

// AnswerCompleted carries the result of a full ask.
type AnswerCompleted struct {
	Question string
	Result   *domain.AnswerResult
	Err      error
}

// PassagesCompleted carries the result of a retrieval-only request.
type PassagesCompleted struct {
	Question string
	Chunks   []domain.RetrievedChunk
	Err      error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
