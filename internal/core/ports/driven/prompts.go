package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names fall back to the built-in default when one exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptRAGAnswer instructs the model to answer solely from the context
	// and cite with [^n] markers. The template takes %[1]s (context) and
	// %[2]s (question).
	PromptRAGAnswer = "rag_answer"
)
