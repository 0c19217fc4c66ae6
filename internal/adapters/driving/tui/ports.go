// Package tui provides an interactive terminal user interface for kbase.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Answer runs the full generation chain.
	Answer driving.AnswerService

	// Retrieval returns ranked passages without calling the model.
	Retrieval driving.RetrievalService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(answer driving.AnswerService, retrieval driving.RetrievalService) *Ports {
	return &Ports{
		Answer:    answer,
		Retrieval: retrieval,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
