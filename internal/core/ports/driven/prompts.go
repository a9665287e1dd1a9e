package driven

// PromptTitle names the template used to ask for a post title.
// It has a single %s verb for the post text.
const PromptTitle = "title"

// PromptStore loads named prompt templates.
type PromptStore interface {
	// Load returns the template for name, or the built-in default when no
	// custom template exists.
	Load(name string) (string, error)

	// Reload drops cached templates so edited files are picked up.
	Reload()
}

// PromptStoreAware is implemented by services whose prompts can be replaced
// after construction.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
