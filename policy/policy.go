// Package policy fixes the boundary between the core and the external
// NetKAT-style policy compiler (spec.md §1, §3 "Policy"). The compiler
// itself — parsing a policy language and producing per-switch flow tables —
// is out of scope; this package only declares what the core needs to ask
// of whatever compiler is plugged in.
package policy

import "github.com/ofcored/controller/of"

// Policy is opaque to the core: whatever the external compiler hands back
// from parsing a high-level policy description. The core only ever passes
// a Policy value to a Compiler or Evaluator, never inspects it.
type Policy interface{}

// Compiler turns a Policy into the flow table a specific switch should
// install, used by the best-effort updater (§4.5) and both phases of the
// consistent updater (§4.6).
type Compiler interface {
	Compile(p Policy, sw of.SwitchId) (of.FlowTable, error)
}

// Location is the tagged union a packet's processing ends at: either a
// physical port (forward immediately) or a named pipe (deliver to the
// app). Exactly one of the accessors below is meaningful for any Location.
type Location struct {
	kind LocationKind
	port of.PortId
	pipe string
}

// LocationKind discriminates Location.
type LocationKind int

const (
	LocationPhysical LocationKind = iota
	LocationPipe
)

// Physical builds a Location routing to a physical port.
func Physical(p of.PortId) Location { return Location{kind: LocationPhysical, port: p} }

// Pipe builds a Location routing to a named application pipe.
func Pipe(name string) Location { return Location{kind: LocationPipe, pipe: name} }

// Kind reports which variant this Location is.
func (l Location) Kind() LocationKind { return l.kind }

// Port is valid when Kind() == LocationPhysical.
func (l Location) Port() of.PortId { return l.port }

// PipeName is valid when Kind() == LocationPipe.
func (l Location) PipeName() string { return l.pipe }

// Result is one packet produced by evaluating a Policy against an input
// packet: its (possibly modified) headers and where it ends up.
type Result struct {
	Headers  of.HeaderValues
	Location Location
}

// Evaluator symbolically runs a Policy against a single input packet,
// producing every packet it forwards or delivers — a policy may duplicate
// a packet to multiple locations (e.g. flooding), so this returns a slice
// (spec.md §4.4 step 2).
type Evaluator interface {
	Eval(p Policy, sw of.SwitchId, inPort of.PortId, h of.HeaderValues) ([]Result, error)
}
