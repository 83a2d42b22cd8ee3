package utilities_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/antonio-alexander/go-employee-facade/internal"
	"github.com/antonio-alexander/go-employee-facade/internal/utilities"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	buffer := &bytes.Buffer{}
	logger := utilities.NewLogger(buffer)
	err := logger.Configure(map[string]string{"LOG_LEVEL": "info"})
	assert.Nil(t, err)

	ctx := internal.CtxWithCorrelationId(context.TODO(), "abc")
	logger.Debug(ctx, "hidden %d", 1)
	assert.Zero(t, buffer.Len())
	logger.Info(ctx, "visible %d", 2)
	line := strings.TrimSpace(buffer.String())
	assert.NotEmpty(t, line)

	var entry map[string]any
	err = json.Unmarshal([]byte(line), &entry)
	assert.Nil(t, err)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "visible 2", entry["message"])
	assert.Equal(t, "abc", entry["correlation_id"])

	//default level only lets errors through
	buffer.Reset()
	err = logger.Configure(map[string]string{})
	assert.Nil(t, err)
	logger.Info(context.TODO(), "hidden")
	assert.Zero(t, buffer.Len())
	logger.Error(context.TODO(), "failure")
	assert.Contains(t, buffer.String(), "failure")
}

func TestCounter(t *testing.T) {
	counter := utilities.NewCounter()

	hit, miss := counter.Read("employees")
	assert.Equal(t, -1, hit)
	assert.Equal(t, -1, miss)
	assert.Equal(t, 1, counter.IncrementHit("employees"))
	assert.Equal(t, 2, counter.IncrementHit("employees"))
	assert.Equal(t, 1, counter.IncrementMiss("employees"))
	hit, miss = counter.Read("employees")
	assert.Equal(t, 2, hit)
	assert.Equal(t, 1, miss)

	counters := counter.ReadAll()
	assert.Equal(t, 2, counters.CounterHits["employees"])
	assert.Equal(t, 1, counters.CounterMisses["employees"])

	counter.Reset()
	hit, _ = counter.Read("employees")
	assert.Equal(t, -1, hit)
}

func TestTimers(t *testing.T) {
	timers := utilities.NewTimers()

	index := timers.Start("employees_list")
	assert.Equal(t, 0, index)
	elapsed := timers.Stop("employees_list", index)
	assert.GreaterOrEqual(t, elapsed, int64(0))
	assert.Equal(t, int64(-1), timers.Stop("employees_list", 5))
	assert.Equal(t, int64(-1), timers.Stop("unknown", 0))

	//an unstopped timer doesn't count towards the average
	_ = timers.Start("employees_list")
	_ = timers.Start("employee_read")
	readAll := timers.ReadAll()
	assert.Equal(t, elapsed, readAll.Totals["employees_list"])
	assert.Equal(t, elapsed, readAll.Averages["employees_list"])
	assert.Equal(t, int64(0), readAll.Averages["employee_read"])

	timers.Clear()
	assert.Empty(t, timers.ReadAll().Totals)
}
