// Package packetin implements the Packet-In Evaluator (spec.md §4.4): given
// a raw packet-in payload and a switch's compiled local policy, it decides
// which resulting packets go back out a physical port immediately and which
// are delivered to the application as PacketIn network events.
package packetin

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ofcored/controller/event"
	"github.com/ofcored/controller/log"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/session"
)

var logger = log.Get("packetin")

// ErrAssertionFailed covers the "should never happen" cases in spec.md
// §4.4 step 3: a result the evaluator expected to be physical turned out
// to be a pipe, or vice versa.
var ErrAssertionFailed = errors.New("packetin: policy evaluation produced an inconsistent location")

// ErrUnsupportedMod is returned (and the offending packet dropped, not the
// whole batch) when packet_sync_headers would need to rewrite a field it
// cannot realize on raw bytes (spec.md §4.4 step 5, §7).
var ErrUnsupportedMod = errors.New("packetin: policy modified a field that cannot be re-serialized")

const repeatCacheExpiration = 2 * time.Second

// Evaluator wires the external policy evaluator and header codec into the
// packet-in pipeline.
type Evaluator struct {
	policyEval policy.Evaluator
	codec      of.HeaderCodec
	repeats    *repeatCache
}

// New builds an Evaluator. policyEval and codec are the external NetKAT
// evaluator and packet codec this module treats as collaborators (spec.md
// §1).
func New(policyEval policy.Evaluator, codec of.HeaderCodec) *Evaluator {
	return &Evaluator{
		policyEval: policyEval,
		codec:      codec,
		repeats:    newRepeatCache(repeatCacheExpiration),
	}
}

// Evaluate runs the full §4.4 pipeline for one packet-in: parse, evaluate
// the policy, send every physical-port result as a packet-out on the
// session's connection, and return one network event per pipe-bound
// result. A per-packet ErrUnsupportedMod failure is logged and that single
// result skipped; it never aborts the rest of the batch.
func (e *Evaluator) Evaluate(s *session.Session, payload of.PacketInPayload, inPort of.PortId) ([]event.Event, error) {
	original, err := e.codec.Parse(payload.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "packetin: parsing packet-in from switch %v", s.Id())
	}

	results, err := e.policyEval.Eval(s.CompiledLocal(), s.Id(), inPort, original)
	if err != nil {
		return nil, errors.Wrapf(err, "packetin: evaluating policy for switch %v", s.Id())
	}

	var events []event.Event
	for _, res := range results {
		switch res.Location.Kind() {
		case policy.LocationPhysical:
			if err := e.forwardPhysical(s, payload, original, res, inPort); err != nil {
				logger.Errorf("switch %v: forwarding packet-in result: %v", s.Id(), err)
			}
		case policy.LocationPipe:
			ev, err := e.deliverToPipe(s, payload, original, res, inPort)
			if err != nil {
				if errors.Is(err, ErrUnsupportedMod) {
					logger.Errorf("switch %v: dropping packet for pipe %q: %v", s.Id(), res.Location.PipeName(), err)
					continue
				}
				logger.Errorf("switch %v: delivering packet-in to pipe %q: %v", s.Id(), res.Location.PipeName(), err)
				continue
			}
			events = append(events, ev)
		default:
			return nil, errors.Wrap(ErrAssertionFailed, "unrecognized location kind")
		}
	}

	return events, nil
}

// forwardPhysical implements §4.4 steps 3-4 for one phys-bound result,
// suppressing a repeat of the same repeat-cache key (Ethernet source,
// destination and type, plus out port) seen within the cache's expiration
// window.
func (e *Evaluator) forwardPhysical(s *session.Session, payload of.PacketInPayload, original of.HeaderValues, res policy.Result, inPort of.PortId) error {
	if res.Location.Kind() != policy.LocationPhysical {
		return errors.Wrap(ErrAssertionFailed, "forwardPhysical called on a non-physical result")
	}
	port := res.Location.Port()

	if e.repeats.seenRecently(res.Headers, port) {
		logger.Debugf("switch %v: suppressing repeated packet-out to port %v within window", s.Id(), port)
		return nil
	}

	actions := buildForwardActions(original, res.Headers, port)
	out := of.PacketOut{
		Buffered: payload.Buffered,
		BufferID: payload.BufferID,
		Data:     payload.Data,
		InPort:   inPort,
		Actions:  actions,
	}

	if err := s.Conn().SendPacketOut(out); err != nil {
		return errors.Wrapf(err, "sending packet-out to port %v", port)
	}
	return nil
}

// buildForwardActions implements §4.4 step 3's action-list construction:
// any header field that differs from the original packet becomes a Modify
// action, followed by Output(Physical(port)); with no modifications the
// action list is just the Output.
func buildForwardActions(original, modified of.HeaderValues, port of.PortId) []of.Action {
	diffs := of.Diff(original, modified)
	actions := make([]of.Action, 0, len(diffs)+1)
	for _, f := range diffs {
		actions = append(actions, actionFor(f, modified))
	}
	actions = append(actions, of.Output(port))
	return actions
}

func actionFor(f of.FieldDiff, modified of.HeaderValues) of.Action {
	switch f {
	case of.FieldEthSrc:
		return of.SetEthSrc(modified.EthSrc)
	case of.FieldEthDst:
		return of.SetEthDst(modified.EthDst)
	case of.FieldVlan:
		return of.SetVlan(modified.Vlan)
	default:
		return of.Modify(f, modified)
	}
}

// deliverToPipe implements §4.4 step 5 for one pipe-bound result: resync the
// possibly-modified headers into bytes, then build the PacketIn network
// event carrying those bytes. With no header change the event carries
// payload.Data as received (only the header prefix when the packet-in was
// buffered); with a change it carries the resynced bytes. The event has no
// buffer id field, so only forwardPhysical's packet-out ever reuses the
// switch's buffer.
func (e *Evaluator) deliverToPipe(s *session.Session, payload of.PacketInPayload, original of.HeaderValues, res policy.Result, inPort of.PortId) (event.Event, error) {
	if res.Location.Kind() != policy.LocationPipe {
		return event.Event{}, errors.Wrap(ErrAssertionFailed, "deliverToPipe called on a non-pipe result")
	}

	diffs := of.Diff(original, res.Headers)
	for _, f := range diffs {
		if of.UnsupportedResync[f] {
			return event.Event{}, errors.Wrapf(ErrUnsupportedMod, "field %v", f)
		}
	}

	data := payload.Data
	if len(diffs) > 0 {
		synced, err := e.codec.Sync(original, res.Headers, payload.Data)
		if err != nil {
			return event.Event{}, errors.Wrap(err, "re-serializing modified headers")
		}
		data = synced
	}

	totalLen := payload.TotalLen
	if totalLen == 0 {
		totalLen = uint16(len(data))
	}

	return event.PacketInEvent(res.Location.PipeName(), s.Id(), inPort, data, totalLen), nil
}
