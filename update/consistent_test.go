package update

import (
	"testing"

	"github.com/ofcored/controller/barrier"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/session"
	"github.com/ofcored/controller/topology"
)

// recordedFlowMod captures one FlowMod call a fakeUpdateConn received, for
// assertions that don't care about xid.
type recordedFlowMod struct {
	op    of.FlowModOp
	entry of.PrioritizedEntry
}

// fakeUpdateConn resolves every BarrierRequest it receives immediately
// against the shared registry, so phaseOne/phaseTwo's SendTimeout calls
// never actually wait out the real 15s deadline in a unit test.
type fakeUpdateConn struct {
	sw           of.SwitchId
	barriers     *barrier.Registry
	flowMods     []recordedFlowMod
	barrierCount int
}

func (c *fakeUpdateConn) SwitchId() of.SwitchId { return c.sw }
func (c *fakeUpdateConn) SendFlowMod(xid of.XId, op of.FlowModOp, entry of.PrioritizedEntry) error {
	c.flowMods = append(c.flowMods, recordedFlowMod{op: op, entry: entry})
	return nil
}
func (c *fakeUpdateConn) SendDeleteAll(xid of.XId) error { return nil }
func (c *fakeUpdateConn) SendBarrierRequest(xid of.XId) error {
	c.barrierCount++
	c.barriers.Resolve(xid)
	return nil
}
func (c *fakeUpdateConn) SendPacketOut(out of.PacketOut) error { return nil }

// fakeCompiler returns a fixed, single-entry table per switch id, set up by
// the test to model a trivial "forward p1->p2" policy across a two-switch
// linear topology.
type fakeCompiler struct {
	tables map[of.SwitchId]of.FlowTable
}

func (f *fakeCompiler) Compile(p policy.Policy, sw of.SwitchId) (of.FlowTable, error) {
	return f.tables[sw], nil
}

func port(p of.PortId) *of.PortId { return &p }

// TestConsistentUpdateTwoSwitchLinear covers spec.md §8 scenario 1: a
// two-switch linear topology with edge port 1 on switch A (facing a host)
// and an internal link to switch B (A's port 2 to B's port 1), B's edge
// port 2 facing a host. The compiled policy forwards packets from A's edge
// port into the network; the updater must produce exactly the edge-table
// entry spec.md's scenario names for A: match dlVlan=65535 (untagged) AND
// in_port=1, actions [SetVlan(2), Output(2)].
func TestConsistentUpdateTwoSwitchLinear(t *testing.T) {
	const switchA, switchB of.SwitchId = 1, 2

	topo := topology.NewGraph()
	topo.AddSwitch(switchA)
	topo.AddSwitch(switchB)
	topo.AddPort(switchA, 1) // edge, faces a host
	topo.AddPort(switchA, 2) // internal, faces switch B
	topo.AddPort(switchB, 1) // internal, faces switch A
	topo.AddPort(switchB, 2) // edge, faces a host
	topo.SetLink(switchA, 2, switchB, 1)

	compiler := &fakeCompiler{tables: map[of.SwitchId]of.FlowTable{
		switchA: of.AssignPriorities([]of.FlowEntry{
			{Pattern: of.Pattern{InPort: port(1)}, Actions: []of.Action{of.Output(2)}},
		}),
		switchB: of.AssignPriorities([]of.FlowEntry{
			{Pattern: of.Pattern{InPort: port(1)}, Actions: []of.Action{of.Output(2)}},
		}),
	}}

	registry := barrier.NewRegistry(0)
	u := NewConsistent(compiler, topo, registry)

	connA := &fakeUpdateConn{sw: switchA, barriers: registry}
	connB := &fakeUpdateConn{sw: switchB, barriers: registry}
	sA := session.New(switchA, connA)
	sB := session.New(switchB, connB)

	if err := u.Update(struct{}{}, []*session.Session{sA, sB}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Version() != 2 {
		t.Fatalf("expected version to advance to 2, got %v", u.Version())
	}

	// Switch A: phase I install (internal table, dlVlan=2), phase II install
	// (edge table, dlVlan=65535), phase III delete (dlVlan=1). No phase II
	// deletions since no edge table was previously installed.
	installsA := filterOp(connA.flowMods, of.FlowModAdd)
	if len(installsA) != 2 {
		t.Fatalf("expected 2 installs on switch A, got %d: %+v", len(installsA), installsA)
	}

	internalA := installsA[0].entry
	if !vlanTagEquals(internalA.Entry.Pattern.Vlan, 2) {
		t.Fatalf("expected switch A's phase I entry tagged dlVlan=2, got %v", internalA.Entry.Pattern.Vlan)
	}
	assertActionsSetVlanThenOutput(t, internalA.Entry.Actions, 2, 2)

	edgeA := installsA[1].entry
	if !vlanTagEquals(edgeA.Entry.Pattern.Vlan, of.VlanAbsent) {
		t.Fatalf("expected switch A's phase II entry tagged dlVlan=vlan_none (absent), got %v", edgeA.Entry.Pattern.Vlan)
	}
	if edgeA.Entry.Pattern.InPort == nil || *edgeA.Entry.Pattern.InPort != 1 {
		t.Fatalf("expected switch A's edge entry to keep in_port=1, got %v", edgeA.Entry.Pattern.InPort)
	}
	assertActionsSetVlanThenOutput(t, edgeA.Entry.Actions, 2, 2)

	deletesA := filterOp(connA.flowMods, of.FlowModDelete)
	if len(deletesA) != 1 {
		t.Fatalf("expected exactly 1 phase III delete on switch A, got %d", len(deletesA))
	}
	if !vlanTagEquals(deletesA[0].entry.Entry.Pattern.Vlan, 1) {
		t.Fatalf("expected phase III delete to target dlVlan=1, got %v", deletesA[0].entry.Entry.Pattern.Vlan)
	}

	// Switch B's single compiled rule matches on its internal port (1), so
	// phase II's edge filter drops it: B ends up with no edge entries for
	// this policy, matching a switch with no directly edge-served rule.
	installsB := filterOp(connB.flowMods, of.FlowModAdd)
	if len(installsB) != 1 {
		t.Fatalf("expected only switch B's phase I internal install, got %d: %+v", len(installsB), installsB)
	}
	internalB := installsB[0].entry
	assertActionsSetVlanThenOutput(t, internalB.Entry.Actions, 0, 2) // Set(None) precedes Output(2)

	if connA.barrierCount != 2 || connB.barrierCount != 2 {
		t.Fatalf("expected one barrier per phase I/II on each switch, got A=%d B=%d", connA.barrierCount, connB.barrierCount)
	}

	p := struct{}{}
	if sA.CompiledLocal() != p || sB.CompiledLocal() != p {
		t.Fatalf("expected both switches' compiled_local to be the updated policy after phase II cutover, got A=%v B=%v", sA.CompiledLocal(), sB.CompiledLocal())
	}
}

// TestConsistentUpdateNoInstalledEntryCarriesAStaleTag is a property-style
// check for spec.md §8 property 2: every entry this update installs is
// tagged either with the new version or with vlan_none (edge), never with
// anything else, and the retiring version is explicitly deleted.
func TestConsistentUpdateNoInstalledEntryCarriesAStaleTag(t *testing.T) {
	const sw of.SwitchId = 1
	topo := topology.NewGraph()
	topo.AddSwitch(sw)
	topo.AddPort(sw, 1)

	compiler := &fakeCompiler{tables: map[of.SwitchId]of.FlowTable{
		sw: of.AssignPriorities([]of.FlowEntry{
			{Pattern: of.Pattern{InPort: port(1)}, Actions: []of.Action{of.ToController(0)}},
		}),
	}}

	registry := barrier.NewRegistry(0)
	u := NewConsistent(compiler, topo, registry)
	conn := &fakeUpdateConn{sw: sw, barriers: registry}
	s := session.New(sw, conn)

	if err := u.Update(struct{}{}, []*session.Session{s}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fm := range filterOp(conn.flowMods, of.FlowModAdd) {
		v := fm.entry.Entry.Pattern.Vlan
		if v == nil {
			t.Fatalf("installed entry has no vlan tag at all: %+v", fm.entry)
		}
		if *v != 2 && *v != of.VlanAbsent {
			t.Fatalf("installed entry carries a stale or unexpected tag %v: %+v", *v, fm.entry)
		}
	}

	deletes := filterOp(conn.flowMods, of.FlowModDelete)
	if len(deletes) != 1 || !vlanTagEquals(deletes[0].entry.Entry.Pattern.Vlan, 1) {
		t.Fatalf("expected exactly one phase III delete targeting the retiring dlVlan=1, got %+v", deletes)
	}
}

func filterOp(calls []recordedFlowMod, op of.FlowModOp) []recordedFlowMod {
	var out []recordedFlowMod
	for _, c := range calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func vlanTagEquals(v *of.VlanVersion, want of.VlanVersion) bool {
	return v != nil && *v == want
}

func assertActionsSetVlanThenOutput(t *testing.T, actions []of.Action, wantVlan of.VlanVersion, wantPort of.PortId) {
	t.Helper()
	if len(actions) != 2 {
		t.Fatalf("expected exactly 2 actions (Set, Output), got %d: %+v", len(actions), actions)
	}
	if actions[0].Kind != of.ActionModify || actions[0].Field != of.FieldVlan {
		t.Fatalf("expected first action to be a vlan Modify, got %+v", actions[0])
	}
	if wantVlan == 0 {
		if actions[0].Value.Vlan != nil {
			t.Fatalf("expected Set(None), got Set(%v)", *actions[0].Value.Vlan)
		}
	} else {
		if actions[0].Value.Vlan == nil || *actions[0].Value.Vlan != wantVlan {
			t.Fatalf("expected Set(%v), got %+v", wantVlan, actions[0].Value.Vlan)
		}
	}
	if actions[1].Kind != of.ActionOutputPhysical || actions[1].OutPort != wantPort {
		t.Fatalf("expected Output(%v), got %+v", wantPort, actions[1])
	}
}
