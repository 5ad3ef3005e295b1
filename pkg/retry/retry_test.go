package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raceinsight/backend/pkg/errs"
)

func fastNetworkConfig(maxAttempts int) Config {
	cfg := NetworkConfig(maxAttempts, time.Millisecond, nil)
	cfg.JitterFraction = 0
	return cfg
}

func TestDoRetriesNetworkErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastNetworkConfig(3), func() error {
		attempts++
		if attempts < 3 {
			return errs.Network("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	dataErr := errs.DataProcess("bad row")
	err := Do(context.Background(), fastNetworkConfig(3), func() error {
		attempts++
		return dataErr
	})

	assert.ErrorIs(t, err, errs.ErrDataProcess)
	assert.Equal(t, 1, attempts)
}

func TestDoExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastNetworkConfig(3), func() error {
		attempts++
		return errs.Network("still down")
	})

	assert.ErrorIs(t, err, errs.ErrNetwork)
	assert.Equal(t, 3, attempts)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastNetworkConfig(3), func() error {
		return errs.Network("never seen")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	value, err := DoWithResult(context.Background(), fastNetworkConfig(2), func() (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errs.Network("once")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestRetryableDefaultsToAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAttempts = 2
	cfg.InitialDelay = time.Millisecond
	cfg.JitterFraction = 0

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("any error")
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}
