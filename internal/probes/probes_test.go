package probes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTCPProbe_ClosedPortIsNotAnError(t *testing.T) {
	adapter := &TCPProbeAdapter{Limiter: NewLimiter(1000)}
	// Port 1 is reserved and almost never listening in test environments.
	result, err := adapter.TCPProbe(context.Background(), "127.0.0.1", 1, 200*time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, result.Open)
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var l *Limiter
	assert.NoError(t, l.wait(context.Background()))
}

func TestLookupARP_MissReturnsEmptyNotError(t *testing.T) {
	mac, err := lookupARP("203.0.113.254")
	assert.NoError(t, err)
	assert.Empty(t, mac)
}
