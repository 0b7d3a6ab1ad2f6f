package redemption

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTLUntil(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	require.Equal(t, time.Hour+time.Minute, TTLUntil(now, now.Add(time.Hour)), "future expiry")
	require.Equal(t, time.Minute, TTLUntil(now, now.Add(-time.Hour)), "past expiry")
}
