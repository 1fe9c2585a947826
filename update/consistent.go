package update

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ofcored/controller/barrier"
	"github.com/ofcored/controller/differ"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/session"
	"github.com/ofcored/controller/topology"
)

// Consistent implements the per-packet-consistent updater (spec.md §4.6):
// the Reitblatt-style two-phase, VLAN-tagged update protocol that replaces
// a policy across the whole switch fleet without ever mixing versions on a
// single packet.
//
// The version counter is the only piece of state a Consistent owns beyond
// its collaborators; everything else it needs (per-switch installed edge
// table, compiled policy) lives on the session the switch's entry in the
// store already tracks.
type Consistent struct {
	compiler policy.Compiler
	topo     topology.View
	barriers *barrier.Registry

	mu      sync.Mutex
	version of.VlanVersion
}

// NewConsistent builds a Consistent updater with the version counter at its
// initial value of 1 (spec.md §4.6: "a single integer ver, initially 1").
func NewConsistent(compiler policy.Compiler, topo topology.View, barriers *barrier.Registry) *Consistent {
	return &Consistent{compiler: compiler, topo: topo, barriers: barriers, version: 1}
}

// Version returns the current installed version, exposed through
// controller.Controller.Version.
func (u *Consistent) Version() of.VlanVersion {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.version
}

// phaseOutcome records one switch's result for a single phase, collected so
// the join point can log every failure without letting one switch's error
// stop the others (spec.md §4.6: "the update is logged and the remaining
// phases still attempt to complete for that switch").
type phaseOutcome struct {
	sw  of.SwitchId
	err error
}

// runPerSwitch fans fn out over every session in parallel and joins on all
// of them before returning, matching the "for every switch in parallel"
// wording of each phase — a bounded goroutine-per-switch join via
// sync.WaitGroup (spec.md §4.6 [DOMAIN STACK] note, §5).
func runPerSwitch(sessions []*session.Session, fn func(s *session.Session) error) []phaseOutcome {
	outcomes := make([]phaseOutcome, len(sessions))
	var wg sync.WaitGroup
	wg.Add(len(sessions))
	for i, s := range sessions {
		i, s := i, s
		go func() {
			defer wg.Done()
			outcomes[i] = phaseOutcome{sw: s.Id(), err: fn(s)}
		}()
	}
	wg.Wait()
	return outcomes
}

func logOutcomes(phase string, outcomes []phaseOutcome) {
	for _, o := range outcomes {
		if o.err != nil {
			logger.Errorf("consistent update %s phase failed for switch %v: %v", phase, o.sw, o.err)
		}
	}
}

// Update runs the full three-phase protocol for policy p against every
// session currently in store, advancing the version counter by one on
// return regardless of any per-switch failure (spec.md §4.6 step 4, §9
// "Decision: implemented as specified — liveness over consistency").
func (u *Consistent) Update(p policy.Policy, sessions []*session.Session) error {
	u.mu.Lock()
	current := u.version
	next := current + 1
	u.mu.Unlock()

	internalPorts := make(map[of.SwitchId]map[of.PortId]bool, len(sessions))
	for _, s := range sessions {
		internalPorts[s.Id()] = u.internalPortSet(s.Id())
	}

	phase1 := runPerSwitch(sessions, func(s *session.Session) error {
		return u.phaseOne(p, s, internalPorts[s.Id()], next)
	})
	logOutcomes("I", phase1)

	phase2 := runPerSwitch(sessions, func(s *session.Session) error {
		return u.phaseTwo(p, s, internalPorts[s.Id()], next)
	})
	logOutcomes("II", phase2)

	phase3 := runPerSwitch(sessions, func(s *session.Session) error {
		return u.phaseThree(s, current)
	})
	logOutcomes("III", phase3)

	u.mu.Lock()
	u.version = next
	u.mu.Unlock()

	return nil
}

func (u *Consistent) internalPortSet(sw of.SwitchId) map[of.PortId]bool {
	set := make(map[of.PortId]bool)
	for _, p := range u.topo.Ports(sw) {
		if topology.Internal(u.topo, sw, p) {
			set[p] = true
		}
	}
	return set
}

// phaseOne implements §4.6 step 1 for one switch: compile, stamp every
// rule's match with dlVlan=Some(next), rewrite actions, install, barrier.
func (u *Consistent) phaseOne(p policy.Policy, s *session.Session, internalPorts map[of.PortId]bool, next of.VlanVersion) error {
	compiled, err := u.compiler.Compile(p, s.Id())
	if err != nil {
		return errors.Wrapf(err, "phase I: compiling policy for switch %v", s.Id())
	}

	internal, err := stampAndRewrite(compiled, nil, internalPorts, next, next)
	if err != nil {
		return errors.Wrapf(err, "phase I: rewriting actions for switch %v", s.Id())
	}

	conn := s.Conn()
	for _, e := range internal {
		if err := conn.SendFlowMod(0, of.FlowModAdd, e); err != nil {
			return errors.Wrapf(err, "phase I: installing internal entry on switch %v", s.Id())
		}
	}

	if err := u.barriers.SendTimeout(conn); err != nil {
		return errors.Wrapf(err, "phase I: barrier on switch %v", s.Id())
	}
	return nil
}

// phaseTwo implements §4.6 step 2 for one switch: recompile, keep only edge
// (or unspecified in_port) rules, stamp dlVlan=vlan_none, rewrite actions,
// diff against the previously installed edge table, install the new table,
// delete the diffed-out old entries, barrier, then record the new edge
// table and p itself as this switch's compiled_local policy (spec.md §3)
// now that its edge table has fully cut over — this is the point at which
// the packet-in evaluator (reached through the translator) must start
// seeing p, not whatever policy was compiled_local before.
func (u *Consistent) phaseTwo(p policy.Policy, s *session.Session, internalPorts map[of.PortId]bool, next of.VlanVersion) error {
	compiled, err := u.compiler.Compile(p, s.Id())
	if err != nil {
		return errors.Wrapf(err, "phase II: compiling policy for switch %v", s.Id())
	}

	isEdgeRule := func(e of.FlowEntry) bool {
		if e.Pattern.InPort == nil {
			return true
		}
		return !internalPorts[*e.Pattern.InPort]
	}

	edge, err := stampAndRewrite(compiled, isEdgeRule, internalPorts, of.VlanAbsent, next)
	if err != nil {
		return errors.Wrapf(err, "phase II: rewriting actions for switch %v", s.Id())
	}

	old := s.InstalledEdge()
	deletions := differ.Deletions(old, edge)

	conn := s.Conn()
	for _, e := range edge {
		if err := conn.SendFlowMod(0, of.FlowModAdd, e); err != nil {
			return errors.Wrapf(err, "phase II: installing edge entry on switch %v", s.Id())
		}
	}
	for _, e := range deletions {
		if err := conn.SendFlowMod(0, of.FlowModDeleteStrict, e); err != nil {
			return errors.Wrapf(err, "phase II: deleting old edge entry on switch %v", s.Id())
		}
	}

	if err := u.barriers.SendTimeout(conn); err != nil {
		return errors.Wrapf(err, "phase II: barrier on switch %v", s.Id())
	}

	s.SetInstalledEdge(edge)
	s.SetCompiledLocal(p)
	return nil
}

// phaseThree implements §4.6 step 3 for one switch: a non-strict delete
// whose pattern matches only dlVlan=Some(current) — the version being
// retired — at priority 0. No barrier is sent; these removals are safe
// because no packet is stamped "current" anywhere in the network anymore.
func (u *Consistent) phaseThree(s *session.Session, current of.VlanVersion) error {
	pattern := of.Pattern{}.WithVlan(current)
	entry := of.PrioritizedEntry{Entry: of.FlowEntry{Pattern: pattern}, Priority: 0}

	if err := s.Conn().SendFlowMod(0, of.FlowModDelete, entry); err != nil {
		return errors.Wrapf(err, "phase III: garbage-collecting version %v on switch %v", current, s.Id())
	}
	return nil
}

// stampAndRewrite builds one phase's flow table out of a freshly compiled
// one: optionally filters entries (nil keep means keep all), stamps every
// surviving entry's match with matchVlan, rewrites its actions per Rewrite,
// and assigns fresh descending priorities starting at of.MaxPriority
// (spec.md §4.6 steps 1-2: "entries installed top-down, priorities starting
// at 65535 descending by 1").
func stampAndRewrite(compiled of.FlowTable, keep func(of.FlowEntry) bool, internalPorts map[of.PortId]bool, matchVlan, rewriteVersion of.VlanVersion) (of.FlowTable, error) {
	entries := make([]of.FlowEntry, 0, len(compiled))
	for _, pe := range compiled {
		e := pe.Entry
		if keep != nil && !keep(e) {
			continue
		}
		e.Pattern = e.Pattern.WithVlan(matchVlan)

		actions, err := Rewrite(e.Actions, internalPorts, rewriteVersion)
		if err != nil {
			return nil, err
		}
		e.Actions = actions

		entries = append(entries, e)
	}
	return of.AssignPriorities(entries), nil
}
