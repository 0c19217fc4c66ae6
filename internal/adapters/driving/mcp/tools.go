package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documents"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the question to find supporting passages for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput is a single ranked passage.
type ChunkOutput struct {
	Rank       int     `json:"rank"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

var errEmptyQuestion = errors.New("question must not be empty")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents, citing passages as [^n]",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the ranked passages that would ground an answer, without generating one",
	}, s.handleRetrieve)
}

func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, errEmptyQuestion
	}

	result, err := s.ports.Answer.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{Answer: result.Answer, Context: result.Context}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, RetrieveOutput{}, errEmptyQuestion
	}

	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.Question)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, toRetrieveOutput(chunks), nil
}

func toRetrieveOutput(chunks []domain.RetrievedChunk) RetrieveOutput {
	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		output.Chunks[i] = ChunkOutput{
			Rank:       chunks[i].Rank,
			Source:     chunks[i].Chunk.SourceID,
			ChunkIndex: chunks[i].Chunk.Index,
			Score:      chunks[i].Score,
			Text:       chunks[i].Chunk.Text,
		}
	}
	return output
}
