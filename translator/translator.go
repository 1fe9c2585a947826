// Package translator implements the Event Translator (spec.md §4.3): it
// turns raw per-switch wire messages into the high-level network events the
// controller driver dispatches to the app.
package translator

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/ofcored/controller/barrier"
	"github.com/ofcored/controller/event"
	"github.com/ofcored/controller/log"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/packetin"
	"github.com/ofcored/controller/session"
	"github.com/ofcored/controller/topology"
)

var logger = log.Get("translator")

// Translator converts a switch's raw wire events into network events,
// consulting the session store (for the switch's compiled policy and to
// create/destroy its session), the topology view (for Disconnect's port
// enumeration), and the barrier registry (to resolve BarrierReply).
type Translator struct {
	sessions  *session.Store
	topo      topology.View
	barriers  *barrier.Registry
	evaluator *packetin.Evaluator
}

// New builds a Translator over the given shared state.
func New(sessions *session.Store, topo topology.View, barriers *barrier.Registry, evaluator *packetin.Evaluator) *Translator {
	return &Translator{sessions: sessions, topo: topo, barriers: barriers, evaluator: evaluator}
}

// Translate converts one raw event into zero or more network events
// (spec.md §4.3). The order of the returned slice is the order the events
// must be dispatched in, preserving per-switch FIFO (spec.md §8 property 5).
func (t *Translator) Translate(raw of.RawEvent, conn of.Conn) ([]event.Event, error) {
	switch raw.Kind {
	case of.RawConnect:
		return t.translateConnect(raw, conn), nil
	case of.RawDisconnect:
		return t.translateDisconnect(raw), nil
	case of.RawPacketIn:
		return t.translatePacketIn(raw)
	case of.RawPortStatus:
		return t.translatePortStatus(raw), nil
	case of.RawBarrierReply:
		t.barriers.Resolve(raw.XId)
		return nil, nil
	default:
		logger.Debugf("dropping unrecognized raw event from switch %v: %v", raw.Switch, spew.Sdump(raw))
		return nil, nil
	}
}

func (t *Translator) translateConnect(raw of.RawEvent, conn of.Conn) []event.Event {
	s := session.New(raw.Switch, conn)
	s.SetFeatures(session.Features{
		DPID:       raw.Features.DPID,
		NumBuffers: raw.Features.NumBuffers,
		NumTables:  raw.Features.NumTables,
	})
	t.sessions.Add(s)

	events := []event.Event{event.SwitchUpEvent(raw.Switch)}
	for _, p := range raw.Features.Ports {
		if p.Usable() {
			events = append(events, event.PortUpEvent(raw.Switch, p.Number))
		}
	}
	return events
}

func (t *Translator) translateDisconnect(raw of.RawEvent) []event.Event {
	var events []event.Event
	for _, p := range t.topo.Ports(raw.Switch) {
		events = append(events, event.PortDownEvent(raw.Switch, p))
	}
	events = append(events, event.SwitchDownEvent(raw.Switch))

	t.barriers.AbandonSwitch(raw.Switch)
	t.sessions.Remove(raw.Switch)

	return events
}

func (t *Translator) translatePacketIn(raw of.RawEvent) ([]event.Event, error) {
	s := t.sessions.Get(raw.Switch)
	if s == nil || s.CompiledLocal() == nil {
		logger.Debugf("dropping packet-in from switch %v: no compiled policy known yet", raw.Switch)
		return nil, nil
	}

	return t.evaluator.Evaluate(s, raw.Packet, raw.InPort)
}

func (t *Translator) translatePortStatus(raw of.RawEvent) []event.Event {
	switch raw.StatusReason {
	case of.PortStatusAdd:
		if raw.PortDesc.Usable() {
			return []event.Event{event.PortUpEvent(raw.Switch, raw.PortDesc.Number)}
		}
	case of.PortStatusModify:
		if raw.PortDesc.Usable() {
			return []event.Event{event.PortUpEvent(raw.Switch, raw.PortDesc.Number)}
		}
		return []event.Event{event.PortDownEvent(raw.Switch, raw.PortDesc.Number)}
	case of.PortStatusDelete:
		return []event.Event{event.PortDownEvent(raw.Switch, raw.PortDesc.Number)}
	}
	return nil
}
