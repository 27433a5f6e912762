package config

// Store is the interface for persisting the clock plan.
type Store interface {
	// Load loads the current plan. Returns DefaultPlan if no file exists.
	Load() (*Plan, error)

	// Save persists the plan. Implementations may debounce rapid saves.
	Save(plan *Plan) error

	// Path returns the file path used by this store.
	Path() string

	// Flush forces an immediate write of any pending plan.
	Flush() error
}
