// Package session holds the per-switch session state (spec.md §3 "Switch
// session", §2 component 2): the compiled local policy, the installed edge
// table, and the connection used to reach the switch. Mutex-protected like
// cherry's Device, since session lookups happen from both the single event
// dispatcher goroutine and the status REST handlers.
package session

import (
	"sync"

	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
)

// Features mirrors the FeaturesReply fields the core needs to keep around
// after the initial handshake (grounded on cherry's Features struct).
type Features struct {
	DPID       of.SwitchId
	NumBuffers uint32
	NumTables  uint8
}

// Descriptions mirrors OFPST_DESC, kept for introspection only (grounded on
// cherry's Descriptions struct).
type Descriptions struct {
	Manufacturer string
	Hardware     string
	Software     string
	Serial       string
	Description  string
}

// Session is the controller-side record for one attached switch. The zero
// value is not usable; construct with New.
type Session struct {
	mu sync.RWMutex

	id   of.SwitchId
	conn of.Conn

	features     Features
	descriptions Descriptions

	// compiledLocal is the Policy last known to be installed on this
	// switch, read by the translator and packet-in evaluator (§4.3, §4.4)
	// and set by the best-effort updater (§4.5) and the consistent
	// updater's Phase II (§4.6). Nil until the first successful install.
	compiledLocal policy.Policy

	// installedEdge is exactly what the switch holds after the last
	// successful barrier (spec.md §3 invariant), maintained only by the
	// consistent updater's Phase II (§4.6 step 2) — the best-effort
	// updater does not distinguish edge/internal tables, so it never
	// touches this field.
	installedEdge of.FlowTable

	closed bool
}

// New creates a session for sw communicating over conn.
func New(sw of.SwitchId, conn of.Conn) *Session {
	return &Session{id: sw, conn: conn}
}

// Id returns the switch id this session is for.
func (s *Session) Id() of.SwitchId { return s.id }

// Conn returns the connection used to reach this switch.
func (s *Session) Conn() of.Conn { return s.conn }

// SetFeatures records the switch's FeaturesReply.
func (s *Session) SetFeatures(f Features) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = f
}

// Features returns the switch's recorded FeaturesReply.
func (s *Session) Features() Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features
}

// SetDescriptions records the switch's OFPST_DESC reply.
func (s *Session) SetDescriptions(d Descriptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.descriptions = d
}

// Descriptions returns the switch's recorded OFPST_DESC reply.
func (s *Session) Descriptions() Descriptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.descriptions
}

// CompiledLocal returns the Policy currently believed installed on this
// switch, or nil if none has been installed yet (spec.md §4.3: "if no
// compiled policy is known for this switch yet, drop silently").
func (s *Session) CompiledLocal() policy.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.compiledLocal
}

// SetCompiledLocal records p as the Policy now installed on this switch.
func (s *Session) SetCompiledLocal(p policy.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compiledLocal = p
}

// InstalledEdge returns a copy of the edge table last confirmed installed
// by a barrier reply.
func (s *Session) InstalledEdge() of.FlowTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(of.FlowTable, len(s.installedEdge))
	copy(out, s.installedEdge)
	return out
}

// SetInstalledEdge records table as the edge table now confirmed installed.
func (s *Session) SetInstalledEdge(table of.FlowTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installedEdge = table
}

// Close marks the session as torn down. SendFlowMod-style operations on a
// closed session's Conn are expected to fail; Close itself just flips the
// bookkeeping flag so Closed() reflects it (spec.md §7 "SwitchDisconnect").
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
