// Command demo runs the power-on self-test (POST) sequencer: a single
// POWER_ON event posted to the realtime runtime boots the machine through the
// POST cascade (two passing steps, one failing step that is retried) into Run.
package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/embeddedstate/hsm"
	"github.com/embeddedstate/hsm/realtime"
)

const (
	evPowerOn hsm.EventID = iota + 1
	evPostBegin
	evPostStepOK
	evPostStepFail
	evPostDone
	evEnterRun
	evPowerOff
)

const (
	postStepsRequired = 3
	postMaxRetries    = 3
)

type postData struct {
	stepsOK    int
	retries    int
	failedOnce bool
}

// runPostStep executes one self-test step. The third step fails exactly once
// so the demo exercises the retry path.
func runPostStep(m *hsm.Machine[postData], _ hsm.Event) {
	d := m.Context()
	if d.stepsOK == postStepsRequired-1 && !d.failedOnce {
		d.failedOnce = true
		fmt.Printf("  step %d: FAIL\n", d.stepsOK+1)
		m.Post(hsm.Event{ID: evPostStepFail})
		return
	}
	fmt.Printf("  step %d: ok\n", d.stepsOK+1)
	m.Post(hsm.Event{ID: evPostStepOK})
}

func buildGraph() (*hsm.Graph[postData], error) {
	b := hsm.NewBuilder[postData]()

	announce := func(m *hsm.Machine[postData], _ hsm.Event) {
		fmt.Printf("-> %s\n", m.CurrentStateName())
	}

	b.State("Off").OnEntry(announce).On(evPowerOn, "PowerOn")

	b.State("PowerOn").
		OnEntry(func(m *hsm.Machine[postData], evt hsm.Event) {
			announce(m, evt)
			m.Post(hsm.Event{ID: evPostBegin})
		}).
		On(evPostBegin, "Post").
		On(evPowerOff, "Off") // inherited by every substate

	b.State("Post").Parent("PowerOn").OnEntry(runPostStep).
		Internal(evPostStepOK, func(m *hsm.Machine[postData], evt hsm.Event) {
			d := m.Context()
			d.stepsOK++
			if d.stepsOK == postStepsRequired {
				m.Post(hsm.Event{ID: evPostDone})
				return
			}
			runPostStep(m, evt)
		})
	b.State("Post").
		On(evPostStepFail, "Post").
		When(func(m *hsm.Machine[postData], _ hsm.Event) bool {
			return m.Context().retries < postMaxRetries
		}).
		Do(func(m *hsm.Machine[postData], _ hsm.Event) {
			m.Context().retries++
			fmt.Printf("  retry %d\n", m.Context().retries)
		}).
		On(evPostStepFail, "PostFail").
		On(evPostDone, "PostPass")

	b.State("PostPass").Parent("PowerOn").
		OnEntry(func(m *hsm.Machine[postData], evt hsm.Event) {
			announce(m, evt)
			m.Post(hsm.Event{ID: evEnterRun})
		}).
		On(evEnterRun, "Run")

	b.State("PostFail").Parent("PowerOn").OnEntry(announce)
	b.State("Run").OnEntry(announce)

	return b.Build()
}

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	graph, err := buildGraph()
	if err != nil {
		log.Fatal("build graph", zap.Error(err))
	}

	rt, err := realtime.New(graph, "Off",
		realtime.WithConfig[postData](realtime.Config{QueueCapacity: 16}),
		realtime.WithContext(&postData{}),
		realtime.WithLogger[postData](log),
	)
	if err != nil {
		log.Fatal("create runtime", zap.Error(err))
	}
	if err := rt.Start(); err != nil {
		log.Fatal("start runtime", zap.Error(err))
	}

	if err := rt.PostEventID(evPowerOn, nil); err != nil {
		log.Fatal("post POWER_ON", zap.Error(err))
	}

	// One event drives the whole cascade; give the worker a moment.
	deadline := time.Now().Add(2 * time.Second)
	for rt.CurrentStateName() != "Run" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := rt.Stop(); err != nil {
		log.Fatal("stop runtime", zap.Error(err))
	}

	stats, err := rt.Stats()
	if err != nil {
		log.Fatal("read stats", zap.Error(err))
	}
	fmt.Printf("\nfinal state: %s\n", rt.CurrentStateName())
	fmt.Printf("events processed: %d  unhandled: %d  transitions: %d\n",
		stats.EventsProcessed, stats.EventsUnhandled, stats.Transitions)
}
