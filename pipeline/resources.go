package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// openAll opens resources in order. On failure the ones already opened
// are closed in reverse so nothing is left open.
func openAll(ctx context.Context, resources []Resource) error {
	for i, r := range resources {
		if err := r.Open(ctx); err != nil {
			if closeErr := closeAll(resources[:i]); closeErr != nil {
				return errors.Join(err, closeErr)
			}
			return err
		}
	}
	return nil
}

// closeAll closes resources in reverse order and joins their errors.
func closeAll(resources []Resource) error {
	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		if err := resources[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close resource %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
