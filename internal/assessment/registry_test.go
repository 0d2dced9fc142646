package assessment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

func TestRegistry_AddViewRemove(t *testing.T) {
	r := NewRegistry()
	a := New("vendor-1", "Acme CRM")

	view := r.Add(a)
	assert.Equal(t, a.ID(), view.ID)
	assert.Equal(t, 1, r.Len())

	got, err := r.View(a.ID())
	require.NoError(t, err)
	assert.Equal(t, view.ID, got.ID)

	assert.True(t, r.Remove(a.ID()))
	assert.False(t, r.Remove(a.ID()))

	_, err = r.View(a.ID())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssessmentNotFound))
}

func TestRegistry_DoPropagatesError(t *testing.T) {
	r := NewRegistry()
	a := New("vendor-1", "Acme CRM")
	r.Add(a)

	err := r.Do(a.ID(), func(a *Assessment) error {
		_, err := a.AddFeature("bogus")
		return err
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCategory))
}

func TestRegistry_ConcurrentEdits(t *testing.T) {
	r := NewRegistry()
	a := New("vendor-1", "Acme CRM")
	r.Add(a)

	const editors = 20
	var wg sync.WaitGroup
	for i := 0; i < editors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Do(a.ID(), func(a *Assessment) error {
				_, err := a.AddFeature(scoring.CategorySupport)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := r.View(a.ID())
	require.NoError(t, err)
	assert.Len(t, view.Features, editors)
	assert.Equal(t, 1.0, view.CategoryScores[scoring.CategorySupport])
}

func TestRegistry_SweepRemovesOnlyExpiredFinalized(t *testing.T) {
	r := NewRegistry()

	draft := New("vendor-1", "Draft Co")
	r.Add(draft)

	finalized := New("vendor-2", "Done Co")
	addScored(t, finalized, scoring.CategorySecurity, 6, scoring.BoostNone)
	r.Add(finalized)
	require.NoError(t, r.Do(finalized.ID(), func(a *Assessment) error {
		_, err := a.Finalize(context.Background(), &fakeStore{})
		return err
	}))

	assert.Equal(t, 0, r.Sweep(time.Now().Add(-time.Hour)), "recent snapshot is retained")
	assert.Equal(t, 2, r.Len())

	// Finalize stays idempotent while the snapshot is retained
	require.NoError(t, r.Do(finalized.ID(), func(a *Assessment) error {
		_, err := a.Finalize(context.Background(), &fakeStore{})
		return err
	}))

	assert.Equal(t, 1, r.Sweep(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, r.Len())

	_, err := r.View(finalized.ID())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssessmentNotFound))
	_, err = r.View(draft.ID())
	assert.NoError(t, err)
}

func TestRegistry_RunSweeperStopsOnCancel(t *testing.T) {
	r := NewRegistry()
	a := New("vendor-1", "Acme CRM")
	addScored(t, a, scoring.CategorySupport, 5, scoring.BoostNone)
	r.Add(a)
	require.NoError(t, r.Do(a.ID(), func(a *Assessment) error {
		_, err := a.Finalize(context.Background(), &fakeStore{})
		return err
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunSweeper(ctx, time.Millisecond, -time.Minute)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
