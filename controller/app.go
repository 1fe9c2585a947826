package controller

import (
	"github.com/ofcored/controller/event"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/topology"
)

// WriteHandle is the write-side surface a running App is given: a way to
// send a packet-out to a specific switch without reaching into the session
// store or a raw of.Conn itself (spec.md §6 "write handle: (SwitchId,
// (payload, Option<PortId>, action_list))").
type WriteHandle interface {
	PacketOut(sw of.SwitchId, payload []byte, inPort of.PortId, actions []of.Action) error
}

// App is the northbound interface spec.md §6 describes as "a function
// receiving (topology_view_handle, write_handle, init) -> per-event handler
// returning Option<Policy>". Go has no bare closures-as-interfaces with
// state, so this is expressed as a two-method interface: Init runs once at
// Start, HandleEvent runs once per dispatched event.
type App interface {
	// Init is called once, before the driver starts dispatching events,
	// with the topology view and write handle the app will use for the
	// rest of its lifetime. It returns the default policy to install on a
	// switch's SwitchUp when HandleEvent itself declines to return one.
	Init(topo topology.View, w WriteHandle) policy.Policy

	// HandleEvent processes one network event. Returning (p, true) triggers
	// a fleet-wide update to p; returning (nil, false) is a no-op except on
	// SwitchUp, where the driver falls back to installing Init's default
	// policy on just that switch (spec.md §4.7).
	HandleEvent(ev event.Event) (policy.Policy, bool)
}

// AppFunc adapts a plain function to an App whose Init step only needs to
// stash the handles, for the common case of an app with no other
// initialization work — mirrors the occasional function-adapter pattern
// cherry's own app packages use for trivial handlers.
type AppFunc struct {
	Default policy.Policy
	Handle  func(topo topology.View, w WriteHandle, ev event.Event) (policy.Policy, bool)

	topo topology.View
	w    WriteHandle
}

func (a *AppFunc) Init(topo topology.View, w WriteHandle) policy.Policy {
	a.topo = topo
	a.w = w
	return a.Default
}

func (a *AppFunc) HandleEvent(ev event.Event) (policy.Policy, bool) {
	return a.Handle(a.topo, a.w, ev)
}
