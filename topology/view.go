// Package topology is the core's read-only window onto the network layout
// discovered by the external LLDP-based discovery component (spec.md §1,
// §3 "Topology view"). The core never discovers links itself; it only
// consumes the two queries below plus the mutation hooks a discovery
// component would call.
package topology

import (
	"sync"

	"github.com/ofcored/controller/of"
)

// HostId identifies an end host, opaque to the core beyond equality.
type HostId string

// PeerKind classifies what sits on the far end of a switch port.
type PeerKind int

const (
	// PeerUnknown means the port has no discovered peer yet — treated as
	// edge, since an undiscovered port cannot be assumed internal.
	PeerUnknown PeerKind = iota
	PeerSwitch
	PeerHost
)

// View is the narrow query surface the core's components (translator,
// consistent updater) depend on — kept as an interface so tests can supply
// a fake without constructing a real Graph.
type View interface {
	// Ports returns every port number known for sw, in no particular order.
	Ports(sw of.SwitchId) []of.PortId

	// Peer reports what is attached to port on sw. ok is false if sw or
	// port is not known to the topology at all.
	Peer(sw of.SwitchId, port of.PortId) (kind PeerKind, peerSwitch of.SwitchId, peerHost HostId, ok bool)
}

// Internal reports whether port on sw connects to another known switch
// (spec.md GLOSSARY: "Internal port"). Edge is simply !Internal.
func Internal(v View, sw of.SwitchId, port of.PortId) bool {
	kind, _, _, ok := v.Peer(sw, port)
	return ok && kind == PeerSwitch
}

type portEntry struct {
	kind       PeerKind
	peerSwitch of.SwitchId
	peerHost   HostId
}

// Graph is the default in-memory View implementation: an adjacency
// structure keyed by switch id, not by pointer, per the "Cyclic ownership"
// design note in spec.md §9. A real deployment wires this up from the LLDP
// discovery component's link-up/link-down/host-seen callbacks; tests
// construct one directly.
type Graph struct {
	mu    sync.RWMutex
	ports map[of.SwitchId]map[of.PortId]portEntry
}

// NewGraph returns an empty topology graph.
func NewGraph() *Graph {
	return &Graph{ports: make(map[of.SwitchId]map[of.PortId]portEntry)}
}

// AddSwitch registers sw with an initially empty port set. Idempotent.
func (g *Graph) AddSwitch(sw of.SwitchId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.ports[sw]; !ok {
		g.ports[sw] = make(map[of.PortId]portEntry)
	}
}

// RemoveSwitch drops sw and every port recorded for it.
func (g *Graph) RemoveSwitch(sw of.SwitchId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ports, sw)
}

// AddPort records port on sw with no discovered peer yet (edge until a link
// or host is attached).
func (g *Graph) AddPort(sw of.SwitchId, port of.PortId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.ports[sw]
	if !ok {
		m = make(map[of.PortId]portEntry)
		g.ports[sw] = m
	}
	if _, exists := m[port]; !exists {
		m[port] = portEntry{kind: PeerUnknown}
	}
}

// RemovePort drops port from sw's port set.
func (g *Graph) RemovePort(sw of.SwitchId, port of.PortId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.ports[sw]; ok {
		delete(m, port)
	}
}

// SetLink records a bidirectional switch-to-switch link: port on sw faces
// peerPort on peer. Both switches must already be known via AddSwitch.
func (g *Graph) SetLink(sw of.SwitchId, port of.PortId, peer of.SwitchId, peerPort of.PortId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setPeerLocked(sw, port, portEntry{kind: PeerSwitch, peerSwitch: peer})
	g.setPeerLocked(peer, peerPort, portEntry{kind: PeerSwitch, peerSwitch: sw})
}

// SetHost records that host sits behind port on sw.
func (g *Graph) SetHost(sw of.SwitchId, port of.PortId, host HostId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setPeerLocked(sw, port, portEntry{kind: PeerHost, peerHost: host})
}

// ClearPeer forgets whatever is attached to port on sw, reverting it to
// PeerUnknown (edge).
func (g *Graph) ClearPeer(sw of.SwitchId, port of.PortId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setPeerLocked(sw, port, portEntry{kind: PeerUnknown})
}

func (g *Graph) setPeerLocked(sw of.SwitchId, port of.PortId, e portEntry) {
	m, ok := g.ports[sw]
	if !ok {
		m = make(map[of.PortId]portEntry)
		g.ports[sw] = m
	}
	m[port] = e
}

// Ports implements View.
func (g *Graph) Ports(sw of.SwitchId) []of.PortId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m := g.ports[sw]
	out := make([]of.PortId, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	return out
}

// Peer implements View.
func (g *Graph) Peer(sw of.SwitchId, port of.PortId) (PeerKind, of.SwitchId, HostId, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.ports[sw]
	if !ok {
		return PeerUnknown, 0, "", false
	}
	e, ok := m[port]
	if !ok {
		return PeerUnknown, 0, "", false
	}
	return e.kind, e.peerSwitch, e.peerHost, true
}
