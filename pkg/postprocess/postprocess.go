// Package postprocess provides actions run on a file once it has been
// downloaded and verified.
package postprocess

import (
	"context"
)

// Action runs on the final path of a download. A returned error fails the
// download but leaves the file in place.
type Action func(ctx context.Context, path string) error

// Chain runs actions in order, stopping at the first error. Nil actions are
// skipped; a chain of nothing returns nil.
func Chain(actions ...Action) Action {
	var steps []Action
	for _, a := range actions {
		if a != nil {
			steps = append(steps, a)
		}
	}
	if len(steps) == 0 {
		return nil
	}
	return func(ctx context.Context, path string) error {
		for _, step := range steps {
			if err := step(ctx, path); err != nil {
				return err
			}
		}
		return nil
	}
}
