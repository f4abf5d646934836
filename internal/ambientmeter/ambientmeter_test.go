package ambientmeter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ztkent/ambient-meter/internal/tools"
	"github.com/ztkent/ambient-meter/veml7700"
)

func newTestMeter(t *testing.T) *Meter {
	t.Helper()
	db, err := tools.ConnectSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Meter{
		VEML7700:       &veml7700.VEML7700{},
		ResultsDB:      db,
		LuxResultsChan: make(chan LuxResults),
	}
}

func TestMonitorAndRecordResults(t *testing.T) {
	m := newTestMeter(t)
	go m.MonitorAndRecordResults()

	m.LuxResultsChan <- LuxResults{
		Lux:     57.6,
		Ambient: 1000,
		White:   900,
		JobID:   "job-valid",
	}

	require.Eventually(t, func() bool {
		var count int
		if err := m.ResultsDB.QueryRow("SELECT COUNT(*) FROM ambient").Scan(&count); err != nil {
			return false
		}
		return count == 1
	}, 2*time.Second, 25*time.Millisecond)

	m.setRunning(true)
	conditions, err := m.getCurrentConditions()
	require.NoError(t, err)
	require.Equal(t, "job-valid", conditions.JobID)
	require.InDelta(t, 57.6, conditions.Lux, 1e-4)
	require.Equal(t, float64(1000), conditions.Ambient)
	require.Equal(t, float64(900), conditions.White)
}

func TestMonitorAndRecordResultsSkipsInvalidReadings(t *testing.T) {
	m := newTestMeter(t)
	go m.MonitorAndRecordResults()

	// A failed bus read reports the 0xFFFF sentinel; the record is dropped.
	m.LuxResultsChan <- LuxResults{
		Lux:     1.0,
		Ambient: veml7700.VEML7700_VALUE_ERROR,
		JobID:   "job-invalid",
	}
	m.LuxResultsChan <- LuxResults{
		Lux:     2.5,
		Ambient: 40,
		White:   35,
		JobID:   "job-after",
	}

	// The channel is unbuffered, so once the second result lands the
	// first has already been handled.
	require.Eventually(t, func() bool {
		var count int
		if err := m.ResultsDB.QueryRow("SELECT COUNT(*) FROM ambient").Scan(&count); err != nil {
			return false
		}
		return count == 1
	}, 2*time.Second, 25*time.Millisecond)

	var count int
	require.NoError(t, m.ResultsDB.QueryRow("SELECT COUNT(*) FROM ambient WHERE job_id = ?", "job-invalid").Scan(&count))
	require.Equal(t, 0, count)
}

func TestGetCurrentConditionsRequiresRunningSensor(t *testing.T) {
	m := newTestMeter(t)

	// Not running: reports empty conditions rather than stale data.
	conditions, err := m.getCurrentConditions()
	require.NoError(t, err)
	require.Equal(t, Conditions{}, conditions)
}
