// Command trafficlight drives a traffic light synchronously, without the
// realtime wrapper: one goroutine, direct Dispatch calls. The Operational
// parent state handles the FAULT event for all three lights.
package main

import (
	"fmt"
	"os"

	"github.com/embeddedstate/hsm"
)

const (
	evTimer hsm.EventID = iota + 1
	evFault
	evClear
)

type lightData struct {
	cycles int
}

func main() {
	b := hsm.NewBuilder[lightData]()

	show := func(m *hsm.Machine[lightData], _ hsm.Event) {
		fmt.Printf("light: %s\n", m.CurrentStateName())
	}

	b.State("Operational").On(evFault, "Flashing")
	b.State("Red").Parent("Operational").OnEntry(show).
		On(evTimer, "Green").
		Do(func(m *hsm.Machine[lightData], _ hsm.Event) { m.Context().cycles++ })
	b.State("Green").Parent("Operational").OnEntry(show).On(evTimer, "Yellow")
	b.State("Yellow").Parent("Operational").OnEntry(show).On(evTimer, "Red")
	b.State("Flashing").
		OnEntry(func(m *hsm.Machine[lightData], _ hsm.Event) {
			fmt.Println("light: FLASHING (fault)")
		}).
		On(evClear, "Red")

	graph, err := b.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	data := lightData{}
	m, err := hsm.New(graph, "Red", hsm.WithContext(&data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for i := 0; i < 7; i++ {
		if _, err := m.Dispatch(hsm.Event{ID: evTimer}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// FAULT is handled by the Operational parent whichever light is active.
	for _, id := range []hsm.EventID{evFault, evClear} {
		if _, err := m.Dispatch(hsm.Event{ID: id}); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	fmt.Printf("cycles started: %d, final: %s\n", data.cycles, m.CurrentStateName())
}
