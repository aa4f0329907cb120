package upload

import (
	"sync"

	"github.com/campusai/portal/internal/models"
)

// CategoryFunc resolves the destination category. Process calls it once per
// item, when that item starts.
type CategoryFunc func() models.Category

// CategorySelector holds the active category tab.
type CategorySelector struct {
	mu      sync.RWMutex
	current models.Category
}

// NewCategorySelector creates a selector starting at the notice tab.
func NewCategorySelector() *CategorySelector {
	return &CategorySelector{current: models.CategoryNotice}
}

// Current returns the active category. It satisfies CategoryFunc.
func (s *CategorySelector) Current() models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set switches the active category.
func (s *CategorySelector) Set(c models.Category) error {
	if _, err := models.ParseCategory(string(c)); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
	return nil
}

// Fixed returns a CategoryFunc that always yields c.
func Fixed(c models.Category) CategoryFunc {
	return func() models.Category { return c }
}
