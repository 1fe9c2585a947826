package update

import (
	"github.com/pkg/errors"

	"github.com/ofcored/controller/log"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/session"
)

var logger = log.Get("update")

// ErrEmptyTable is returned when a policy compiles to an empty flow table,
// which spec.md §4.5 calls out as always a bug upstream rather than a
// legitimate "forward nothing" policy.
var ErrEmptyTable = errors.New("update: policy compiled to an empty flow table")

// BestEffort implements the best-effort updater (spec.md §4.5): delete
// everything currently installed, compile p fresh, and install it at
// descending priority starting at of.MaxPriority. No barrier is sent — a
// packet arriving between the delete and the first install may momentarily
// see an empty table, which is the accepted tradeoff for this update mode.
func BestEffort(compiler policy.Compiler, s *session.Session, p policy.Policy) error {
	conn := s.Conn()
	sw := s.Id()

	if err := conn.SendDeleteAll(0); err != nil {
		return errors.Wrapf(err, "update: best-effort delete-all on switch %v", sw)
	}

	entries, err := compiler.Compile(p, sw)
	if err != nil {
		return errors.Wrapf(err, "update: compiling policy for switch %v", sw)
	}
	if len(entries) == 0 {
		return errors.Wrapf(ErrEmptyTable, "switch %v", sw)
	}
	if !entries.SortedDescending() {
		return errors.Errorf("update: compiler returned a table for switch %v not in descending priority order", sw)
	}

	for _, e := range entries {
		if err := conn.SendFlowMod(0, of.FlowModAdd, e); err != nil {
			return errors.Wrapf(err, "update: installing entry at priority %v on switch %v", e.Priority, sw)
		}
	}

	s.SetCompiledLocal(p)
	logger.Infof("switch %v: best-effort update installed %d entries", sw, len(entries))
	return nil
}
