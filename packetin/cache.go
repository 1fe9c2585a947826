package packetin

import (
	"fmt"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ofcored/controller/of"
)

// repeatCache tracks recently seen (Ethernet source, Ethernet destination,
// EtherType, out port) combinations of forwarded packets, so a burst of
// controller-punted packets hitting the same rule does not resend one
// packet-out per packet (spec.md §4.4 "the phys-packet dedupe cache sits in
// front of step 4"). Other header fields (VLAN, IP, transport) are not part
// of the key. Every sighting refreshes the timestamp, so a combination seen
// again within the expiration window of its previous sighting is suppressed
// — directly grounded on cherry's flowCache (network/flow_cache.go), adapted
// from "is a flow-mod for this match already in flight" to "have we already
// sent this forward recently".
type repeatCache struct {
	cache      *lru.Cache
	expiration time.Duration
}

func newRepeatCache(expiration time.Duration) *repeatCache {
	c, err := lru.New(8192)
	if err != nil {
		panic(fmt.Sprintf("packetin: failed to init repeat cache: %v", err))
	}
	return &repeatCache{cache: c, expiration: expiration}
}

func (r *repeatCache) key(h of.HeaderValues, port of.PortId) string {
	return fmt.Sprintf("%v>%v>%v/%v", net.HardwareAddr(h.EthSrc), net.HardwareAddr(h.EthDst), h.EthType, port)
}

// seenRecently reports whether this (Ethernet fields, port) key was
// recorded within the expiration window, and records it either way.
func (r *repeatCache) seenRecently(h of.HeaderValues, port of.PortId) bool {
	key := r.key(h, port)

	v, ok := r.cache.Get(key)
	recently := false
	if ok {
		if time.Since(v.(time.Time)) <= r.expiration {
			recently = true
		}
	}
	r.cache.Add(key, time.Now())
	return recently
}
