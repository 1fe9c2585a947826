// Package update implements the best-effort and consistent updaters (spec.md
// §4.5, §4.6) — the two ways a compiled policy reaches a switch's flow
// tables.
package update

import (
	"github.com/pkg/errors"

	"github.com/ofcored/controller/of"
)

// ErrUnrewritableOutput is returned when a flow entry's action list contains
// an Output action the consistent-update rewrite cannot classify as either
// physical or controller-bound (spec.md §4.6 step 1: "Any non-Physical/
// non-Controller Output is rejected").
var ErrUnrewritableOutput = errors.New("update: action list contains an output the consistent updater cannot rewrite")

// Rewrite implements the pure action-list transformer from spec.md §9's
// "Consistent-update action rewriting" design note:
// (internal_ports, version) -> action list -> action list.
//
// Every Output(Physical p) is preceded by a VLAN set: Set(None) if p is an
// edge port (the packet is about to leave the network), Set(Some(version))
// if p is internal (the packet continues on the new version). Every
// Output(Controller n) is preceded by Set(None). Every other action (Modify
// actions already present in the entry) passes through unchanged. Rewrite
// never mutates actions; it returns a fresh slice.
func Rewrite(actions []of.Action, internalPorts map[of.PortId]bool, version of.VlanVersion) ([]of.Action, error) {
	out := make([]of.Action, 0, len(actions)+1)
	for _, a := range actions {
		switch a.Kind {
		case of.ActionOutputPhysical:
			if internalPorts[a.OutPort] {
				v := version
				out = append(out, of.SetVlan(&v))
			} else {
				out = append(out, of.SetVlan(nil))
			}
			out = append(out, a)
		case of.ActionOutputController:
			out = append(out, of.SetVlan(nil))
			out = append(out, a)
		case of.ActionModify:
			out = append(out, a)
		default:
			return nil, errors.Wrapf(ErrUnrewritableOutput, "action kind %v", a.Kind)
		}
	}
	return out, nil
}

// RewriteTable applies Rewrite to every entry's actions in table, returning
// a new table with the same patterns and priorities.
func RewriteTable(table of.FlowTable, internalPorts map[of.PortId]bool, version of.VlanVersion) (of.FlowTable, error) {
	out := make(of.FlowTable, len(table))
	for i, e := range table {
		actions, err := Rewrite(e.Entry.Actions, internalPorts, version)
		if err != nil {
			return nil, err
		}
		entry := e.Entry
		entry.Actions = actions
		out[i] = of.PrioritizedEntry{Entry: entry, Priority: e.Priority}
	}
	return out, nil
}
