package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/dispatch/eligible-staff", "POST", 200, 2*time.Millisecond)
	m.RecordRequest("/dispatch/eligible-staff", "POST", 200, 3*time.Millisecond)
	m.RecordError("/dispatch/eligible-staff", "POST", "INVALID_CONSTRAINT")
	m.RecordMatch("THERAPIST", 0)
	m.RecordMatch("THERAPIST", 4)
	m.RecordMatch("THERAPIST", 1)

	snap := m.Snapshot()

	assert.Equal(t, int64(2), snap.Requests["/dispatch/eligible-staff|POST|200"])
	assert.Equal(t, 5*time.Millisecond, snap.LatencyTotals["/dispatch/eligible-staff|POST|200"])
	assert.Equal(t, int64(1), snap.Errors["/dispatch/eligible-staff|POST|INVALID_CONSTRAINT"])
	assert.Equal(t, int64(1), snap.MatchOutcomes["THERAPIST|empty"])
	assert.Equal(t, int64(2), snap.MatchOutcomes["THERAPIST|matched"])

	snap.Requests["x"] = 1
	assert.NotContains(t, m.Snapshot().Requests, "x", "snapshot must be a copy")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordMatch("DRIVER", 0)
	assert.Empty(t, m.Snapshot().Requests)
}
