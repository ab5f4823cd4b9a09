package cachehook

import "github.com/xraph/cachehook/internal/entity"

// Entity is the base type embedded by all persisted cachehook objects.
type Entity = entity.Entity

// NewEntity returns an Entity with both timestamps set to the current UTC time.
func NewEntity() Entity {
	return entity.New()
}
