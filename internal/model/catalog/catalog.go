package catalog

// Model identifies one completion model selectable per session.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store exposes model catalog retrieval for HTTP handlers.
type Store interface {
	List() []Model
	FindByID(id string) (Model, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Model
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied models.
func NewMemoryStore(items []Model) *MemoryStore {
	return &MemoryStore{items: append([]Model(nil), items...)}
}

// List returns the catalog.
func (s *MemoryStore) List() []Model {
	return append([]Model(nil), s.items...)
}

// FindByID looks up a model by identifier.
func (s *MemoryStore) FindByID(id string) (Model, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Model{}, false
}

// Seed returns the models offered by default.
func Seed() []Model {
	return []Model{
		{ID: "google-ai-studio/gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
		{ID: "google-ai-studio/gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
		{ID: "alibaba/qwen-image-turbo", Name: "Qwen-Image (Generate)"},
	}
}
