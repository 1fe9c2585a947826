// Package controller implements the Controller Driver (spec.md §4.7,
// component 8): the top-level object that multiplexes switch and topology
// events into a single dispatch loop, routes an app's policy decisions to
// the configured updater, and owns the ambient wiring (config, a status
// REST surface) that makes Start/StartIndependent genuinely runnable entry
// points — grounded on cherry's network/controller.go and session.Run
// dispatch shape.
package controller

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ofcored/controller/barrier"
	"github.com/ofcored/controller/config"
	"github.com/ofcored/controller/event"
	"github.com/ofcored/controller/log"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/packetin"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/session"
	"github.com/ofcored/controller/topology"
	"github.com/ofcored/controller/translator"
	"github.com/ofcored/controller/update"
)

var logger = log.Get("controller")

// eventQueueSize and outboundQueueSize bound the channels backing the event
// loop and the outbound writer. Both are drained by a dedicated goroutine
// (run and runOutbound respectively), so a burst on one never blocks the
// other — the outbound burst in particular can never block a pending
// barrier reply, since barrier waits live in the barrier registry, not on
// this channel (spec.md §9 "outbound writer channel is bounded and drained
// by a dedicated goroutine independent of the barrier wait path").
const (
	eventQueueSize    = 4096
	outboundQueueSize = 4096
)

// outboundPacket is one app-initiated packet-out request, queued by
// writeHandle.PacketOut and drained by runOutbound.
type outboundPacket struct {
	sw      of.SwitchId
	payload []byte
	inPort  of.PortId
	actions []of.Action
}

// Controller is the single dispatch loop plus the collaborators it wires
// together: the session store, topology view, barrier registry, event
// translator, and whichever updater the configured mode selects.
type Controller struct {
	sessions   *session.Store
	topo       topology.View
	barriers   *barrier.Registry
	translator *translator.Translator
	compiler   policy.Compiler
	consistent *update.Consistent
	mode       config.UpdateMode

	app           App
	defaultPolicy policy.Policy

	events   chan event.Event
	outbound chan outboundPacket
}

// New builds a Controller. compiler and policyEval are the external
// NetKAT-style compiler/evaluator; codec is the external packet
// parser/serializer (spec.md §1); topo is the topology view the external
// LLDP discovery component maintains. barrierTimeout is config.Config's
// BarrierTimeout (spec.md §7), the deadline every SendTimeout call in this
// controller's barrier registry waits before giving up.
func New(topo topology.View, compiler policy.Compiler, policyEval policy.Evaluator, codec of.HeaderCodec, mode config.UpdateMode, barrierTimeout time.Duration) *Controller {
	sessions := session.NewStore()
	barriers := barrier.NewRegistry(barrierTimeout)
	evaluator := packetin.New(policyEval, codec)

	return &Controller{
		sessions:   sessions,
		topo:       topo,
		barriers:   barriers,
		translator: translator.New(sessions, topo, barriers, evaluator),
		compiler:   compiler,
		consistent: update.NewConsistent(compiler, topo, barriers),
		mode:       mode,
		events:     make(chan event.Event, eventQueueSize),
		outbound:   make(chan outboundPacket, outboundQueueSize),
	}
}

// AddConnection wires up a newly attached switch: conn is the narrow
// send-side handle the external OpenFlow codec implements, raw is the
// stream of wire events that same codec parsed for this switch. A
// dedicated goroutine per switch translates and feeds the shared event
// queue, giving the round-robin fairness across switches spec.md §4.7
// calls for (every switch's goroutine blocks on the same channel send, so
// none is starved ahead of the others).
func (c *Controller) AddConnection(conn of.Conn, raw <-chan of.RawEvent) {
	go func() {
		for r := range raw {
			evs, err := c.translator.Translate(r, conn)
			if err != nil {
				logger.Errorf("translating event from switch %v: %v", conn.SwitchId(), err)
				continue
			}
			for _, ev := range evs {
				c.events <- ev
			}
		}
	}()
}

// InjectTopologyEvent feeds a topology-discovery-originated event (e.g. a
// host first seen behind a port) into the same dispatch queue switch
// events use, so the app sees one merged, fairly-interleaved stream
// (spec.md §4.7 "multiplexing topology-discovery events with translated
// switch events").
func (c *Controller) InjectTopologyEvent(ev event.Event) {
	c.events <- ev
}

// Sessions exposes the session store for callers that need direct access
// (the status REST surface, tests); the dispatch loop itself only ever
// reaches it through the translator and the updaters.
func (c *Controller) Sessions() *session.Store { return c.sessions }

// Barriers exposes the barrier registry, used by the status REST surface
// to report the outstanding count.
func (c *Controller) Barriers() *barrier.Registry { return c.barriers }

// Version reports the current per-packet-consistent version counter,
// meaningful only when mode is config.Consistent.
func (c *Controller) Version() of.VlanVersion { return c.consistent.Version() }

// writeHandle adapts Controller.outbound to the App-facing WriteHandle
// interface (spec.md §6 "write handle").
type writeHandle struct {
	c *Controller
}

func (w *writeHandle) PacketOut(sw of.SwitchId, payload []byte, inPort of.PortId, actions []of.Action) error {
	w.c.outbound <- outboundPacket{sw: sw, payload: payload, inPort: inPort, actions: actions}
	return nil
}

// Start runs app's event loop on the calling goroutine, blocking until the
// event queue is closed. Use this when the driver should own the process's
// main goroutine (spec.md §6 "start(app, port?, update_mode?)").
func (c *Controller) Start(app App) {
	c.init(app)
	c.run()
}

// StartIndependent runs app's event loop on a background goroutine and
// returns immediately, for embedding the driver inside a larger program
// that has its own main loop (spec.md §6 "start_independent(independent_app,
// port?, update_mode?)").
func (c *Controller) StartIndependent(app App) {
	c.init(app)
	go c.run()
}

func (c *Controller) init(app App) {
	c.app = app
	c.defaultPolicy = app.Init(c.topo, &writeHandle{c})
	go c.runOutbound()
}

// run is the single dispatch loop (spec.md §5 "single-threaded cooperative
// event loop"): events are handled strictly one at a time, so the app's
// HandleEvent is never re-entered concurrently with itself.
func (c *Controller) run() {
	for ev := range c.events {
		c.handleEvent(ev)
	}
}

func (c *Controller) handleEvent(ev event.Event) {
	p, ok := c.app.HandleEvent(ev)
	if ok {
		c.applyPolicy(p)
		return
	}

	if ev.Kind != event.SwitchUp {
		return
	}
	s := c.sessions.Get(ev.Switch)
	if s == nil {
		return
	}
	if c.defaultPolicy == nil {
		return
	}
	if err := update.BestEffort(c.compiler, s, c.defaultPolicy); err != nil {
		logger.Errorf("default policy install on switch %v: %v", ev.Switch, err)
	}
}

// applyPolicy runs the configured updater across every currently connected
// switch (the per-switch SwitchUp default install path goes through
// update.BestEffort directly rather than through here, since it only ever
// targets the one switch that just came up).
func (c *Controller) applyPolicy(p policy.Policy) {
	targets := c.sessions.All()

	switch c.mode {
	case config.BestEffort:
		for _, s := range targets {
			if err := update.BestEffort(c.compiler, s, p); err != nil {
				logger.Errorf("best-effort update on switch %v: %v", s.Id(), err)
			}
		}
	case config.Consistent:
		if err := c.consistent.Update(p, targets); err != nil {
			logger.Errorf("consistent update: %v", err)
		}
	default:
		logger.Errorf("applyPolicy: unrecognized update mode %v", c.mode)
	}
}

// runOutbound is the dedicated outbound writer (spec.md §4.7 "a single
// outbound writer serialises packet-outs"): it drains app-initiated
// packet-out requests and sends each to the right switch, logging but not
// aborting on a per-send failure.
func (c *Controller) runOutbound() {
	for pkt := range c.outbound {
		s := c.sessions.Get(pkt.sw)
		if s == nil {
			logger.Errorf("packet-out for switch %v with no active session, dropped", pkt.sw)
			continue
		}

		out := of.PacketOut{
			Data:    pkt.payload,
			InPort:  pkt.inPort,
			Actions: pkt.actions,
		}
		if err := s.Conn().SendPacketOut(out); err != nil {
			logger.Errorf("sending app packet-out to switch %v: %v", pkt.sw, errors.Wrap(err, "outbound writer"))
		}
	}
}
