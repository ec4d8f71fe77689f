package stream

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func TestBackoffPolicy_Delay(t *testing.T) {
	policy := BackoffPolicy{MinInterval: 10 * time.Second}

	assert.Equal(t, 10*time.Second, policy.Delay(0))
	assert.Equal(t, 8*time.Second, policy.Delay(2*time.Second))
	assert.Equal(t, time.Millisecond, policy.Delay(10*time.Second-time.Millisecond))
	assert.Zero(t, policy.Delay(10*time.Second))
	assert.Zero(t, policy.Delay(time.Hour))
	assert.Equal(t, 10*time.Second, policy.Delay(-time.Second))
}
