package kernel

import (
	"context"
	"errors"
	"fmt"
)

// runSafely executes fn and converts panics into returned errors tagged with scope.
// It guards bucket, mailbox and driver goroutines.
func runSafely(scope string, fn func() error) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}
		err = fmt.Errorf("%s: panic recovered: %v", scope, recovered)
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", scope, err)
	}

	return nil
}

// isContextCancellation reports whether err only signals a finished context.
func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
