package barrier

import (
	"testing"
	"time"

	"github.com/ofcored/controller/of"
)

// fakeConn never replies to a BarrierRequest, used to exercise SendTimeout.
type fakeConn struct {
	sw       of.SwitchId
	requests []of.XId
}

func (c *fakeConn) SwitchId() of.SwitchId { return c.sw }
func (c *fakeConn) SendFlowMod(xid of.XId, op of.FlowModOp, entry of.PrioritizedEntry) error {
	return nil
}
func (c *fakeConn) SendDeleteAll(xid of.XId) error { return nil }
func (c *fakeConn) SendBarrierRequest(xid of.XId) error {
	c.requests = append(c.requests, xid)
	return nil
}
func (c *fakeConn) SendPacketOut(out of.PacketOut) error { return nil }

func TestSendResolvedByReply(t *testing.T) {
	r := NewRegistry(0)
	conn := &fakeConn{sw: 1}

	done := make(chan error, 1)
	go func() { done <- r.Send(conn) }()

	// Wait for the request to land, then resolve it out of band like a
	// translator delivering a BarrierReply would.
	waitFor(t, func() bool { return len(conn.requests) == 1 })
	r.Resolve(conn.requests[0])

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSendTimeoutResolvesOnTimeout(t *testing.T) {
	// NewRegistry's timeout parameter is what config.Config.BarrierTimeout
	// actually drives at runtime (see config.go); shrink it here rather
	// than going through DefaultTimeout so the test does not take 15s.
	r := NewRegistry(5 * time.Millisecond)
	conn := &fakeConn{sw: 1}

	err := r.SendTimeout(conn)
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if r.Outstanding() != 0 {
		t.Fatalf("expected no outstanding waiters after timeout, got %v", r.Outstanding())
	}

	// A late reply for the reaped xid must not panic and must be ignored.
	r.Resolve(conn.requests[0])
}

func TestNewRegistryDefaultsAZeroTimeout(t *testing.T) {
	r := NewRegistry(0)
	if r.timeout != DefaultTimeout {
		t.Fatalf("expected a zero timeout to default to %v, got %v", DefaultTimeout, r.timeout)
	}
}

func TestAbandonSwitchResolvesPendingWaiters(t *testing.T) {
	r := NewRegistry(0)
	conn := &fakeConn{sw: 42}

	done := make(chan error, 1)
	go func() { done <- r.Send(conn) }()

	waitFor(t, func() bool { return len(conn.requests) == 1 })
	r.AbandonSwitch(42)

	err := <-done
	if err != ErrAbandoned {
		t.Fatalf("expected ErrAbandoned, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
