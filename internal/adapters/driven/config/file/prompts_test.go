package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewPromptStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kbase", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "rag_answer.txt"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_DefaultRAGAnswer(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Contains(t, prompt, "solely")
	assert.Contains(t, prompt, "[^n]")

	rendered := fmt.Sprintf(prompt, "[^1] Paris is the capital of France.", "What is the capital of France?")
	assert.Contains(t, rendered, "<context>\n[^1] Paris is the capital of France.\n</context>")
	assert.Contains(t, rendered, "Question: What is the capital of France?")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Context:\n%[1]s\n\nQ: %[2]s\nA:"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte("\n"+custom+"\n\n"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_RejectsTemplateWithoutPlaceholders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rag_answer.txt"), []byte("Just answer: %s"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	want, _ := DefaultPrompt(driven.PromptRAGAnswer)
	assert.Equal(t, want, prompt)
}

func TestPromptStore_Load_FallsBackWhenFileRemoved(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "rag_answer.txt")))
	store.Reload()

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	want, _ := DefaultPrompt(driven.PromptRAGAnswer)
	assert.Equal(t, want, prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("does_not_exist")
	assert.Error(t, err)
}

func TestPromptStore_InitFailureUsesDefaults(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Contains(t, prompt, "%[1]s")

	_, err = store.Load("other")
	assert.Error(t, err)
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag_answer.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1 %[1]s %[2]s"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	first, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, "v1 %[1]s %[2]s", first)

	require.NoError(t, os.WriteFile(path, []byte("v2 %[1]s %[2]s"), 0o600))
	cached, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, "v2 %[1]s %[2]s", fresh)
}

func TestPromptStore_ConcurrentAccess(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%5 == 0 {
				store.Reload()
				return
			}
			_, err := store.Load(driven.PromptRAGAnswer)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestWatchPrompts_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rag_answer.txt")
	require.NoError(t, os.WriteFile(path, []byte("old %[1]s %[2]s"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	prompt, err := store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	require.Equal(t, "old %[1]s %[2]s", prompt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchPrompts(ctx, dir, store, func(name string) { reloaded <- name })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("new %[1]s %[2]s"), 0o600))

	select {
	case name := <-reloaded:
		assert.Equal(t, "rag_answer", name)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not observe the write")
	}

	prompt, err = store.Load(driven.PromptRAGAnswer)
	require.NoError(t, err)
	assert.Equal(t, "new %[1]s %[2]s", prompt)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchPrompts_MissingDir(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	err = WatchPrompts(context.Background(), filepath.Join(t.TempDir(), "missing"), store, nil)
	assert.Error(t, err)
}
