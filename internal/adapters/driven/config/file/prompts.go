package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompt templates from user-editable files, falling
// back to the built-in defaults.
//
// Initialisation is lazy: the directory and default files are written on
// the first Load, never in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains the built-in templates. They are also written
// out as the initial content of new prompt files.
var defaultPrompts = map[string]string{
	driven.PromptRAGAnswer: `You are an expert assistant who must answer *solely* from the context.

<context>
%[1]s
</context>

Question: %[2]s

Answer in markdown (cite sources with [^n]):`,
}

// requiredVerbs lists the placeholders a custom template must keep.
var requiredVerbs = map[string][]string{
	driven.PromptRAGAnswer: {"%[1]s", "%[2]s"},
}

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	p, ok := defaultPrompts[name]
	return p, ok
}

// NewPromptStore creates a file-based prompt store.
// If promptDir is empty, defaults to ~/.kbase/prompts.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the template for name. A missing file, or one that dropped
// a required placeholder, yields the built-in default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// No lock held during I/O.
	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}
	if missing := missingVerbs(name, prompt); len(missing) > 0 {
		logger.Warn("prompt %q is missing %s, using built-in default", name, strings.Join(missing, ", "))
		prompt = defaultPrompts[name]
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func missingVerbs(name, prompt string) []string {
	var missing []string
	for _, verb := range requiredVerbs[name] {
		if !strings.Contains(prompt, verb) {
			missing = append(missing, verb)
		}
	}
	return missing
}

func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# kbase prompts

Templates used when asking the language model.

## Files

- ` + "`rag_answer.txt`" + ` - answers a question from retrieved context

## Placeholders

Templates use Go fmt indexed verbs:
- ` + "`%[1]s`" + ` - the numbered context block
- ` + "`%[2]s`" + ` - the user's question

A template that drops either placeholder is ignored in favour of the
built-in default. Edits are picked up by a running server without a restart.
`
	return os.WriteFile(path, []byte(content), 0o600)
}
