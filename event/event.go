// Package event defines the high-level network event the translator
// produces and the controller driver dispatches to the app (spec.md §3
// "Network event", §4.3).
package event

import "github.com/ofcored/controller/of"

// Kind discriminates the Event tagged union.
type Kind int

const (
	SwitchUp Kind = iota
	SwitchDown
	PortUp
	PortDown
	PacketIn
)

func (k Kind) String() string {
	switch k {
	case SwitchUp:
		return "SwitchUp"
	case SwitchDown:
		return "SwitchDown"
	case PortUp:
		return "PortUp"
	case PortDown:
		return "PortDown"
	case PacketIn:
		return "PacketIn"
	default:
		return "Unknown"
	}
}

// Event is the tagged union { SwitchUp(sw), SwitchDown(sw), PortUp(sw,p),
// PortDown(sw,p), PacketIn(pipe, sw, p, payload, total_len) } from spec.md
// §3. Only the fields relevant to Kind are meaningful.
type Event struct {
	Kind   Kind
	Switch of.SwitchId
	Port   of.PortId // valid for PortUp, PortDown, PacketIn (ingress port)

	// Valid for PacketIn only.
	Pipe     string
	Payload  []byte
	TotalLen uint16
}

func SwitchUpEvent(sw of.SwitchId) Event   { return Event{Kind: SwitchUp, Switch: sw} }
func SwitchDownEvent(sw of.SwitchId) Event { return Event{Kind: SwitchDown, Switch: sw} }

func PortUpEvent(sw of.SwitchId, p of.PortId) Event {
	return Event{Kind: PortUp, Switch: sw, Port: p}
}

func PortDownEvent(sw of.SwitchId, p of.PortId) Event {
	return Event{Kind: PortDown, Switch: sw, Port: p}
}

func PacketInEvent(pipe string, sw of.SwitchId, p of.PortId, payload []byte, totalLen uint16) Event {
	return Event{Kind: PacketIn, Switch: sw, Port: p, Pipe: pipe, Payload: payload, TotalLen: totalLen}
}
