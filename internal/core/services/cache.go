package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ensure ChainCache implements the interfaces.
var (
	_ driving.AnswerService    = (*ChainCache)(nil)
	_ driving.RetrievalService = (*ChainCache)(nil)
)

// ChainBuilder constructs the generation chain from resolved settings.
type ChainBuilder func(ctx context.Context, settings *domain.Settings) (*GenerationChain, error)

// ChainCache holds the one generation chain of the process. The chain is
// built on first use and reused for every later call; a failed build is
// remembered too. It never rebuilds, so a new index needs a restart.
type ChainCache struct {
	settings *domain.Settings
	build    ChainBuilder

	once  sync.Once
	chain *GenerationChain
	err   error
}

// NewChainCache creates a cache for fully resolved settings. Nil or
// incomplete settings are a configuration error.
func NewChainCache(settings *domain.Settings, build ChainBuilder) (*ChainCache, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: chain requested before settings were resolved", domain.ErrConfiguration)
	}
	if build == nil {
		return nil, fmt.Errorf("%w: no chain builder", domain.ErrConfiguration)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &ChainCache{settings: settings, build: build}, nil
}

// Get returns the chain, building it on the first call. Concurrent first
// callers block until the single build finishes and all see its result.
// The build is detached from the caller's cancellation.
func (c *ChainCache) Get(ctx context.Context) (*GenerationChain, error) {
	c.once.Do(func() {
		c.chain, c.err = c.build(context.WithoutCancel(ctx), c.settings)
		if c.err == nil && c.chain == nil {
			c.err = fmt.Errorf("%w: chain builder returned nothing", domain.ErrConfiguration)
		}
	})
	return c.chain, c.err
}

// Ask answers question with the cached chain.
func (c *ChainCache) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	chain, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return chain.Ask(ctx, question)
}

// Retrieve returns ranked chunks with the cached chain.
func (c *ChainCache) Retrieve(ctx context.Context, question string) ([]domain.RetrievedChunk, error) {
	chain, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return chain.Retrieve(ctx, question)
}

// Settings returns the settings the chain is built from.
func (c *ChainCache) Settings() *domain.Settings {
	return c.settings
}

// Close releases the chain if it was built.
func (c *ChainCache) Close() error {
	c.once.Do(func() {
		c.err = fmt.Errorf("%w: chain cache closed", domain.ErrConfiguration)
	})
	if c.chain == nil {
		return nil
	}
	return c.chain.Close()
}
