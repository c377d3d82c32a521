package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Steiynbrodt/Osint-Mindmap/infrastructure/resilience"
)

type stateRecorder struct{ states []string }

func (r *stateRecorder) ObserveBreakerState(_ string, state string) {
	r.states = append(r.states, state)
}

func TestBreaker_TripsAndRecovers(t *testing.T) {
	rec := &stateRecorder{}
	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}, nil, rec)

	boom := errors.New("boom")
	fail := func() (interface{}, error) { return nil, boom }
	ok := func() (interface{}, error) { return "ok", nil }

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "closed", b.State())

	_, err = b.Execute(fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "open", b.State())

	_, err = b.Execute(ok)
	assert.ErrorIs(t, err, resilience.ErrOpen)

	time.Sleep(80 * time.Millisecond)
	res, err := b.Execute(ok)
	assert.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, []string{"open", "half-open", "closed"}, rec.states)
}

func TestBreaker_IgnoresCallerCancellation(t *testing.T) {
	b := resilience.NewBreaker(resilience.BreakerConfig{
		Name:             "cancel",
		Timeout:          time.Minute,
		FailureThreshold: 0.1,
		MinRequests:      1,
	}, nil, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (interface{}, error) { return nil, context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, "cancel", b.Name())
}
