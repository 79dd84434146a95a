package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(422, 20*time.Millisecond)
	c.Record(500, 30*time.Millisecond)

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["clientErrorsTotal"])
	assert.InDelta(t, 20.0, snap["avgDurationMs"], 0.001)
}

func TestCollectorOutcomesConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordLeaveOutcome("approved")
			c.RecordLeaveOutcome("rejected_balance_exceeded")
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(50), c.Outcome("approved"))
	leave := c.Snapshot()["leave"].(map[string]uint64)
	assert.Equal(t, uint64(50), leave["requests_rejected_balance_exceeded"])
}
