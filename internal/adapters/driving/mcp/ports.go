package mcp

import (
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Answer runs the full generation chain.
	Answer driving.AnswerService

	// Retrieval returns ranked chunks without calling the model.
	Retrieval driving.RetrievalService
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
