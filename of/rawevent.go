package of

// RawKind discriminates the RawEvent union the external wire codec hands to
// the Event Translator (spec.md §4.3): Connect, Disconnect, PacketIn,
// PortStatus, BarrierReply. Any other OpenFlow message the codec sees is
// dropped before it reaches the core (spec.md §4.3: "Other messages are
// dropped with a debug log").
type RawKind int

const (
	RawConnect RawKind = iota
	RawDisconnect
	RawPacketIn
	RawPortStatus
	RawBarrierReply
)

// RawEvent is one message the wire codec delivered for a given switch.
// Only the fields relevant to Kind are meaningful.
type RawEvent struct {
	Kind   RawKind
	Switch SwitchId

	// Valid for RawConnect.
	Features SwitchFeatures

	// Valid for RawPacketIn.
	Packet PacketInPayload
	InPort PortId

	// Valid for RawPortStatus.
	StatusReason PortStatusReason
	PortDesc     PortDesc

	// Valid for RawBarrierReply.
	XId XId
}
