package realtime

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedstate/hsm"
)

func TestStatsCollector(t *testing.T) {
	rt, _ := newPingRuntime(t)

	_, err := rt.DispatchSync(hsm.Event{ID: evPing})
	require.NoError(t, err)
	_, err = rt.DispatchSync(hsm.Event{ID: 999}) // unhandled
	require.NoError(t, err)
	_, err = rt.DispatchSync(hsm.Event{ID: evGo})
	require.NoError(t, err)

	c := NewStatsCollector(rt)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP hsm_events_processed_total Events entered into the state machine.
# TYPE hsm_events_processed_total counter
hsm_events_processed_total{runtime="` + rt.ID() + `"} 3
# HELP hsm_events_unhandled_total Dispatched events no state handled.
# TYPE hsm_events_unhandled_total counter
hsm_events_unhandled_total{runtime="` + rt.ID() + `"} 1
# HELP hsm_transitions_total External transitions performed, every hop included.
# TYPE hsm_transitions_total counter
hsm_transitions_total{runtime="` + rt.ID() + `"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"hsm_events_processed_total", "hsm_events_unhandled_total", "hsm_transitions_total"))
}

func TestStatsCollectorClosedRuntime(t *testing.T) {
	rt, _ := newPingRuntime(t)
	c := NewStatsCollector(rt)
	require.NoError(t, rt.Close())

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	fams, err := reg.Gather()
	require.NoError(t, err)
	assert.Empty(t, fams)
}
