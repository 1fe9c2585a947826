package of

import (
	"net"
	"testing"
)

func mac(s string) net.HardwareAddr {
	m, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return m
}

func u8(v uint8) *uint8 { return &v }

func TestHeaderValuesCloneIsDeep(t *testing.T) {
	v := VlanVersion(3)
	h := HeaderValues{
		EthSrc: mac("00:11:22:33:44:55"),
		IPSrc:  net.ParseIP("10.0.0.1"),
		Vlan:   &v,
	}

	c := h.Clone()
	c.EthSrc[0] = 0xff
	*c.Vlan = 9
	c.IPSrc[0] = 0xff

	if h.EthSrc[0] == 0xff {
		t.Fatal("mutating the clone's MAC mutated the original")
	}
	if *h.Vlan != 3 {
		t.Fatal("mutating the clone's Vlan mutated the original")
	}
	if h.IPSrc[0] == 0xff {
		t.Fatal("mutating the clone's IP mutated the original")
	}
}

func TestHeaderValuesCloneNilStaysNil(t *testing.T) {
	c := HeaderValues{}.Clone()
	if c.EthSrc != nil || c.Vlan != nil || c.IPSrc != nil || c.IPProto != nil {
		t.Fatalf("expected every nil field to stay nil after clone, got %+v", c)
	}
}

func TestDiffReportsOnlyChangedFieldsInStableOrder(t *testing.T) {
	original := HeaderValues{
		EthSrc:  mac("00:11:22:33:44:55"),
		EthDst:  mac("aa:bb:cc:dd:ee:ff"),
		EthType: 0x0800,
		IPSrc:   net.ParseIP("10.0.0.1"),
		IPProto: u8(6),
	}
	modified := original
	modified.EthDst = mac("11:11:11:11:11:11")
	modified.IPProto = u8(17)

	diff := Diff(original, modified)
	if len(diff) != 2 || diff[0] != FieldEthDst || diff[1] != FieldIPProto {
		t.Fatalf("expected [FieldEthDst, FieldIPProto] in field order, got %v", diff)
	}
}

func TestDiffOfIdenticalHeadersIsEmpty(t *testing.T) {
	h := HeaderValues{
		EthSrc:  mac("00:11:22:33:44:55"),
		EthType: 0x0806,
	}
	if diff := Diff(h, h.Clone()); len(diff) != 0 {
		t.Fatalf("expected no diff between a value and its clone, got %v", diff)
	}
}

func TestDiffDetectsVlanAppearingFromNil(t *testing.T) {
	v := VlanVersion(5)
	diff := Diff(HeaderValues{}, HeaderValues{Vlan: &v})
	if len(diff) != 1 || diff[0] != FieldVlan {
		t.Fatalf("expected a single FieldVlan diff, got %v", diff)
	}
}

func TestUnsupportedResyncNamesTheUnresyncableFields(t *testing.T) {
	for _, f := range []FieldDiff{FieldVlan, FieldVlanPcp, FieldEthType, FieldIPProto} {
		if !UnsupportedResync[f] {
			t.Fatalf("expected field %v to be marked unsupported for resync", f)
		}
	}
	for _, f := range []FieldDiff{FieldEthSrc, FieldEthDst, FieldIPSrc, FieldIPDst, FieldIPTos, FieldTPSrcPort, FieldTPDstPort} {
		if UnsupportedResync[f] {
			t.Fatalf("expected field %v to be resyncable, found marked unsupported", f)
		}
	}
}
