package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()

	want := []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}
	for i, w := range want {
		require.Equal(t, w, p.Delay(i+1), "attempt %d", i+1)
	}
	require.Equal(t, 10*time.Second, p.Delay(80))
}

type sleepRecorder struct {
	delays []time.Duration
	err    error
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

func TestRetryPolicyDoRecovers(t *testing.T) {
	var sleeper sleepRecorder
	var retried []int
	calls := 0

	err := DefaultRetryPolicy().Do(context.Background(), sleeper.sleep,
		func(attempt int, delay time.Duration, err error) { retried = append(retried, attempt) },
		func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{1, 2}, retried)
	require.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, sleeper.delays)
}

func TestRetryPolicyDoExhausts(t *testing.T) {
	var sleeper sleepRecorder
	cause := errors.New("deadlock detected")
	calls := 0

	err := DefaultRetryPolicy().Do(context.Background(), sleeper.sleep, nil, func(ctx context.Context) error {
		calls++
		return cause
	})

	require.ErrorIs(t, err, ErrPersistExhausted)
	require.ErrorIs(t, err, cause)
	require.Equal(t, 3, calls)
	require.Len(t, sleeper.delays, 2)
}

func TestRetryPolicyDoStopsWhenSleepInterrupted(t *testing.T) {
	sleeper := sleepRecorder{err: context.Canceled}
	calls := 0

	err := DefaultRetryPolicy().Do(context.Background(), sleeper.sleep, nil, func(ctx context.Context) error {
		calls++
		return errors.New("timeout")
	})

	require.Error(t, err)
	require.NotErrorIs(t, err, ErrPersistExhausted)
	require.Equal(t, 1, calls)
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
