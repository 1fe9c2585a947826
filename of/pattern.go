package of

import "net"

// Pattern is an OpenFlow 1.0 match expression restricted to the fields the
// core cares about. A nil/zero-value pointer field means "wildcard" (the
// field is not part of the match), matching OF1.0's wildcard-mask semantics
// without carrying the wildcard bitmask itself — the external wire codec
// owns translating this into the real ofp_match wire struct.
type Pattern struct {
	InPort *PortId
	Vlan   *VlanVersion

	EthSrc  net.HardwareAddr
	EthDst  net.HardwareAddr
	EthType *uint16

	IPSrc   *net.IPNet
	IPDst   *net.IPNet
	IPProto *uint8

	TPSrcPort *uint16
	TPDstPort *uint16
}

// Equal reports whether two patterns match exactly the same set of packets,
// used by the differ (§4.1) to decide whether an old and new entry at the
// same priority are "the same rule".
func (p Pattern) Equal(o Pattern) bool {
	return portEqual(p.InPort, o.InPort) &&
		vlanEqual(p.Vlan, o.Vlan) &&
		macEqual(p.EthSrc, o.EthSrc) &&
		macEqual(p.EthDst, o.EthDst) &&
		u16PtrEqual(p.EthType, o.EthType) &&
		ipNetEqual(p.IPSrc, o.IPSrc) &&
		ipNetEqual(p.IPDst, o.IPDst) &&
		u8Equal(p.IPProto, o.IPProto) &&
		u16Equal(p.TPSrcPort, o.TPSrcPort) &&
		u16Equal(p.TPDstPort, o.TPDstPort)
}

// WithVlan returns a copy of p with its Vlan match field replaced, used by
// the consistent updater to stamp internal/edge tables with a version tag
// (§4.6 steps 1-2) without mutating the compiled policy's table.
func (p Pattern) WithVlan(v VlanVersion) Pattern {
	c := p
	cp := v
	c.Vlan = &cp
	return c
}

func portEqual(a, b *PortId) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func u16PtrEqual(a, b *uint16) bool {
	return u16Equal(a, b)
}

func ipNetEqual(a, b *net.IPNet) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IP.Equal(b.IP) && a.Mask.String() == b.Mask.String()
}
