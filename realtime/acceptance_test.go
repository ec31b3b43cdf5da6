package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedstate/hsm"
)

// Power-on self-test sequencer: one POWER_ON event boots the machine through
// the whole POST cascade via run-to-completion posts from entry actions.
//
//	Off --POWER_ON--> PowerOn --(auto)--> Post
//	Post: two steps pass, the third fails once and is retried
//	     (guarded self-transition), then passes --> PostPass --(auto)--> Run
const (
	evPowerOn hsm.EventID = iota + 100
	evPostBegin
	evPostStepOK
	evPostStepFail
	evPostDone
	evEnterRun
)

const (
	postStepsRequired = 3
	postMaxRetries    = 3
)

type postCtx struct {
	stepsOK    int
	retries    int
	failedOnce bool
}

// runPostStep simulates one self-test step: the third step fails exactly once
// so the retry path is exercised.
func runPostStep(m *hsm.Machine[postCtx], _ hsm.Event) {
	c := m.Context()
	if c.stepsOK == postStepsRequired-1 && !c.failedOnce {
		c.failedOnce = true
		m.Post(hsm.Event{ID: evPostStepFail})
		return
	}
	m.Post(hsm.Event{ID: evPostStepOK})
}

func postGraph(t *testing.T) *hsm.Graph[postCtx] {
	t.Helper()
	b := hsm.NewBuilder[postCtx]()

	b.State("Off").On(evPowerOn, "PowerOn")

	b.State("PowerOn").OnEntry(func(m *hsm.Machine[postCtx], _ hsm.Event) {
		m.Post(hsm.Event{ID: evPostBegin})
	})
	b.State("PowerOn").On(evPostBegin, "Post")

	b.State("Post").Parent("PowerOn").
		OnEntry(runPostStep).
		Internal(evPostStepOK, func(m *hsm.Machine[postCtx], evt hsm.Event) {
			c := m.Context()
			c.stepsOK++
			if c.stepsOK == postStepsRequired {
				m.Post(hsm.Event{ID: evPostDone})
				return
			}
			runPostStep(m, evt)
		})
	// A failed step retries via a self-transition (re-entering Post re-runs
	// the step) until the retry budget is spent; then the fallback row fires.
	b.State("Post").
		On(evPostStepFail, "Post").
		When(func(m *hsm.Machine[postCtx], _ hsm.Event) bool {
			return m.Context().retries < postMaxRetries
		}).
		Do(func(m *hsm.Machine[postCtx], _ hsm.Event) {
			m.Context().retries++
		}).
		On(evPostStepFail, "PostFail").
		On(evPostDone, "PostPass")

	b.State("PostPass").Parent("PowerOn").OnEntry(func(m *hsm.Machine[postCtx], _ hsm.Event) {
		m.Post(hsm.Event{ID: evEnterRun})
	})
	b.State("PostPass").On(evEnterRun, "Run")

	b.State("PostFail").Parent("PowerOn")
	b.State("Run")

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

// One synchronous POWER_ON must carry the machine all the way into Run, with
// the transition counter reflecting every external hop along the cascade:
// Off->PowerOn, PowerOn->Post, the Post->Post retry, Post->PostPass, and
// PostPass->Run.
func TestPostSequencerAcceptanceFlow(t *testing.T) {
	rt, err := New(postGraph(t), "Off", WithContext(&postCtx{}))
	require.NoError(t, err)

	handled, err := rt.DispatchSync(hsm.Event{ID: evPowerOn})
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, "Run", rt.CurrentStateName())
	in, err := rt.IsInState("Run")
	require.NoError(t, err)
	assert.True(t, in)
	in, err = rt.IsInState("PowerOn")
	require.NoError(t, err)
	assert.False(t, in, "Run is not nested under PowerOn")

	s, err := rt.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.EventsProcessed, "cascaded posts ride the triggering dispatch")
	assert.Equal(t, uint64(0), s.EventsUnhandled)
	assert.Equal(t, uint64(5), s.Transitions)
}

// Exhausting the retry budget must fall through the guarded row to PostFail.
func TestPostSequencerRetryExhaustion(t *testing.T) {
	ctx := &postCtx{retries: postMaxRetries, stepsOK: postStepsRequired - 1}
	rt, err := New(postGraph(t), "Off", WithContext(ctx))
	require.NoError(t, err)

	handled, err := rt.DispatchSync(hsm.Event{ID: evPowerOn})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "PostFail", rt.CurrentStateName())
}

// The same flow driven asynchronously through the worker must land in the
// same place with the same counters.
func TestPostSequencerAsync(t *testing.T) {
	rt, err := New(postGraph(t), "Off", WithContext(&postCtx{}))
	require.NoError(t, err)
	require.NoError(t, rt.Start())

	require.NoError(t, rt.PostEventID(evPowerOn, nil))
	require.NoError(t, rt.Stop())

	assert.Equal(t, "Run", rt.CurrentStateName())
	s, err := rt.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), s.Transitions)
}
