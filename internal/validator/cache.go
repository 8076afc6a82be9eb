package validator

import (
	"sync"

	"github.com/moamenhredeen/restbind/internal/models"
)

// Cache memoizes validation results per surface. Surfaces are immutable after
// validation, so a result stays valid for the surface's lifetime.
type Cache struct {
	validator *Validator

	mu      sync.Mutex
	results map[*models.Surface]Result
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		validator: NewValidator(),
		results:   make(map[*models.Surface]Result),
	}
}

// Validate returns the cached result for s, validating it on first use
func (c *Cache) Validate(s *models.Surface) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.results[s]; ok {
		return res
	}
	res := c.validator.Validate(s)
	c.results[s] = res
	return res
}
