package of

// PortDesc is a switch port as reported by SwitchFeatures or PortStatus,
// independent of the OF1.0 wire encoding of ofp_phy_port.
type PortDesc struct {
	Number     PortId
	ConfigDown bool
	StateDown  bool
}

// Usable matches spec.md §4.3's Connect handling: a port is usable when
// neither its config nor its link state report "down" and its number is a
// regular (non-reserved) port.
func (p PortDesc) Usable() bool {
	return !p.ConfigDown && !p.StateDown && p.Number.Usable()
}

// SwitchFeatures is the payload of a Connect raw event (OFPT_FEATURES_REPLY
// in OF1.0), carrying everything the Event Translator needs to emit
// SwitchUp/PortUp (§4.3).
type SwitchFeatures struct {
	DPID       SwitchId
	NumBuffers uint32
	NumTables  uint8
	Ports      []PortDesc
}

// PortStatusReason mirrors OFPPR_ADD/OFPPR_DELETE/OFPPR_MODIFY.
type PortStatusReason int

const (
	PortStatusAdd PortStatusReason = iota
	PortStatusDelete
	PortStatusModify
)

// PacketInPayload is either Buffered (the switch kept the full packet and
// handed the controller only a prefix plus a buffer id) or NotBuffered (the
// full packet travelled with the message). Both are carried as raw bytes —
// parsing them into HeaderValues is the packet parser's job (§1, external).
type PacketInPayload struct {
	Buffered bool
	BufferID uint32 // valid only when Buffered
	Data     []byte // header bytes when Buffered, full frame otherwise
	TotalLen uint16 // total on-wire frame length, may exceed len(Data)
}

// FlowModOp selects which FlowModMsg variant to send (spec.md §6).
type FlowModOp int

const (
	FlowModAdd FlowModOp = iota
	// FlowModDelete is a non-strict delete: priority is ignored, every
	// entry whose pattern is a superset match of Pattern is removed. Used
	// by Phase III's version-only pattern delete (§4.6 step 3).
	FlowModDelete
	// FlowModDeleteStrict deletes exactly the (pattern, priority) pair.
	// Used by the consistent updater's Phase II to remove the old edge
	// entries the differ reports (§4.6 step 2).
	FlowModDeleteStrict
)

// Conn is the narrow send-side interface the core uses to talk to one
// attached switch. The external OpenFlow 1.0 codec implements it; the core
// never marshals a wire message itself.
type Conn interface {
	// SwitchId identifies which switch this connection is for.
	SwitchId() SwitchId

	// SendFlowMod installs or removes entry at priority, tagged with xid so
	// a following barrier is known to cover it.
	SendFlowMod(xid XId, op FlowModOp, entry PrioritizedEntry) error

	// SendDeleteAll removes every flow-mod entry on the switch (§4.5).
	SendDeleteAll(xid XId) error

	// SendBarrierRequest emits a BarrierRequest tagged with xid (§4.2).
	SendBarrierRequest(xid XId) error

	// SendPacketOut emits a packet-out, either referencing a buffer id
	// already held by the switch or carrying the raw frame (§4.4 step 4).
	SendPacketOut(out PacketOut) error
}

// PacketOut is what the packet-in evaluator sends on the switch's Conn for
// a packet whose final location was a physical port (§4.4 step 4), and what
// the controller's outbound writer sends for app-initiated packet-outs.
type PacketOut struct {
	Buffered bool
	BufferID uint32
	Data     []byte // required when !Buffered
	InPort   PortId
	Actions  []Action
}
