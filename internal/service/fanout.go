package service

import (
	"context"
	"sync"
	"time"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// runPerTutor fans fn out across tutors with bounded parallelism and a
// per-call timeout, then joins. Each call gets its own deadline so one slow
// lookup cannot stall the whole response. When the parent context is
// cancelled, tutors not yet started are skipped; in-flight calls see the
// cancellation through their derived contexts.
func runPerTutor(ctx context.Context, tutors []models.Tutor, limit int, timeout time.Duration, fn func(ctx context.Context, tutor models.Tutor)) {
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, tutor := range tutors {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(tutor models.Tutor) {
			defer wg.Done()
			defer func() { <-sem }()

			checkCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			fn(checkCtx, tutor)
		}(tutor)
	}

	wg.Wait()
}
