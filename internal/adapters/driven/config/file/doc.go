// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: user-editable prompt templates with built-in defaults
//   - WatchPrompts: fsnotify watcher that invalidates the prompt cache
//   - LoadDotEnv: .env loading that never overrides the real environment
package file
