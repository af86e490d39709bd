package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tutorlane/scheduling-api/internal/models"
)

func fanoutTutors(n int) []models.Tutor {
	tutors := make([]models.Tutor, n)
	for i := range tutors {
		tutors[i] = models.Tutor{ID: string(rune('a' + i))}
	}
	return tutors
}

func TestRunPerTutorVisitsEveryTutor(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)

	runPerTutor(context.Background(), fanoutTutors(10), 3, 0, func(_ context.Context, tutor models.Tutor) {
		mu.Lock()
		seen[tutor.ID] = true
		mu.Unlock()
	})

	assert.Len(t, seen, 10)
}

func TestRunPerTutorBoundsConcurrency(t *testing.T) {
	var current, peak int64

	runPerTutor(context.Background(), fanoutTutors(20), 4, 0, func(_ context.Context, _ models.Tutor) {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&current, -1)
	})

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
}

func TestRunPerTutorAppliesPerCallDeadline(t *testing.T) {
	var withDeadline int64

	runPerTutor(context.Background(), fanoutTutors(3), 2, 50*time.Millisecond, func(ctx context.Context, _ models.Tutor) {
		if _, ok := ctx.Deadline(); ok {
			atomic.AddInt64(&withDeadline, 1)
		}
	})

	assert.Equal(t, int64(3), atomic.LoadInt64(&withDeadline))
}

func TestRunPerTutorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int64
	runPerTutor(ctx, fanoutTutors(50), 1, 0, func(_ context.Context, _ models.Tutor) {
		if atomic.AddInt64(&calls, 1) == 3 {
			cancel()
		}
		time.Sleep(time.Millisecond)
	})

	assert.Less(t, atomic.LoadInt64(&calls), int64(50), "cancellation must stop new launches")
}
