package provider

import (
	"context"
	"fmt"
	"strings"
)

// Selector chooses one of the loaded providers.
type Selector[T Provider] interface {
	Select(ctx context.Context, loaded map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order,
// so a primary model falls back to the next one while it is down.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, loaded map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := loaded[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("none of [%s] is available", strings.Join(s.Priority, ", "))
}
