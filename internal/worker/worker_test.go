package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestJobRunsAllItemsAndReportsProgress(t *testing.T) {
	r := NewRunner(zerolog.Nop())

	var mu sync.Mutex
	var progress []int
	var finished bool

	r.Start(Job{
		Name:  "test",
		Total: 3,
		Run:   func(context.Context, int) error { return nil },
		OnProgress: func(p Progress) {
			mu.Lock()
			progress = append(progress, p.Done)
			mu.Unlock()
		},
		OnDone: func(errs []error, canceled bool) {
			mu.Lock()
			finished = true
			mu.Unlock()
			assert.Empty(t, errs)
			assert.False(t, canceled)
		},
	})
	r.Wait()

	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.True(t, finished)
	assert.False(t, r.Active())
}

func TestJobCollectsErrorsAndContinues(t *testing.T) {
	r := NewRunner(zerolog.Nop())
	boom := errors.New("boom")

	var got []error
	r.Start(Job{
		Name:  "test",
		Total: 3,
		Run: func(_ context.Context, i int) error {
			if i == 1 {
				return boom
			}
			return nil
		},
		OnDone: func(errs []error, _ bool) { got = errs },
	})
	r.Wait()

	assert.Equal(t, []error{boom}, got)
}

func TestJobCancelBetweenItems(t *testing.T) {
	r := NewRunner(zerolog.Nop())

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	ran := 0
	var wasCanceled bool

	cancel := r.Start(Job{
		Name:  "test",
		Total: 100,
		Run: func(_ context.Context, i int) error {
			mu.Lock()
			ran++
			mu.Unlock()
			if i == 0 {
				close(started)
				<-release
			}
			return nil
		},
		OnDone: func(_ []error, canceled bool) { wasCanceled = canceled },
	})

	<-started
	cancel()
	close(release)
	r.Wait()

	assert.True(t, wasCanceled)
	mu.Lock()
	assert.Equal(t, 1, ran, "no further items after cancel")
	mu.Unlock()
}
