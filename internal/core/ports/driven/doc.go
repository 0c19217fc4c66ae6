// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Loader: Turns a raw file into a Document (markdown, plain text)
//   - LoaderRegistry: Selects the loader for a file extension
//   - PostProcessor / PostProcessorPipeline: Splits documents into chunks
//   - EmbeddingService: Maps text to fixed-dimension vectors
//   - VectorIndex: Persists index entries and answers nearest-neighbour queries
//   - LLMService: Language model completion
//   - PromptStore: Prompt templates
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
