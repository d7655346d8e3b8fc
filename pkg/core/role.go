package core

import (
	"fmt"
	"time"

	"github.com/cuemby/ridgedb/pkg/log"
	"github.com/cuemby/ridgedb/pkg/metrics"
	"github.com/cuemby/ridgedb/pkg/roleevents"
	"github.com/cuemby/ridgedb/pkg/types"
)

// Role returns the core's current externally-assigned role.
func (c *Core) Role() types.Role {
	c.roleMu.Lock()
	defer c.roleMu.Unlock()
	return c.role
}

// Subscribe registers a listener for role transitions, mirroring the
// role-change notifications the external membership module delivers to
// this core.
func (c *Core) Subscribe() roleevents.Subscriber {
	return c.roleBroker.Subscribe()
}

// Unsubscribe releases a listener registered via Subscribe.
func (c *Core) Unsubscribe(sub roleevents.Subscriber) {
	c.roleBroker.Unsubscribe(sub)
}

// ApplyRoleEvent is the entry point the external role-arbiter calls to
// drive this core's role state machine: idle -> primary ->
// (losing_primary) -> back|mirror -> primary -> ...
//
// Transitioning to primary does not replay unapplied instructions (clock >
// clocked, clock <= tick) itself: it only logs how many there are, and the
// caller fetches them with ReplayCandidates. The payload is opaque to the
// core, so only the SQL front-end that produced it can interpret a replay.
//
// Transitioning away from primary takes writeGate exclusively, which
// blocks until every Flush already in flight has returned, satisfying the
// "complete or discard any in-flight flush" requirement before the
// transition is considered done.
func (c *Core) ApplyRoleEvent(event types.RoleEvent) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	logger := log.WithCore("core", c.identity.CoreID)

	switch event.Type {
	case types.BecamePrimary:
		c.writeGate.Lock()
		c.roleMu.Lock()
		c.role = types.RolePrimary
		c.roleMu.Unlock()
		c.writeGate.Unlock()

		candidates, err := c.ReplayCandidates()
		if err != nil {
			return fmt.Errorf("core: apply_role_event became_primary: %w", err)
		}
		if len(candidates) > 0 {
			logger.Info().Int("count", len(candidates)).Msg("became primary with unapplied instructions pending replay")
		}

	case types.BecameBack:
		c.setNonPrimaryRole(types.RoleBack)

	case types.BecameMirror:
		c.setNonPrimaryRole(types.RoleMirror)

	case types.LostPrimary:
		c.setNonPrimaryRole(types.RoleIdle)

	default:
		return fmt.Errorf("core: apply_role_event: unknown role event type %q", event.Type)
	}

	isPrimary := 0.0
	if c.Role() == types.RolePrimary {
		isPrimary = 1.0
	}
	metrics.RoleIsPrimary.WithLabelValues(c.identity.CoreID).Set(isPrimary)
	metrics.RoleTransitionsTotal.WithLabelValues(c.identity.CoreID, string(event.Type)).Inc()

	c.roleBroker.Publish(event)
	return nil
}

// setNonPrimaryRole blocks behind writeGate so any Flush already in
// flight completes before the role actually changes away from primary.
func (c *Core) setNonPrimaryRole(role types.Role) {
	c.writeGate.Lock()
	defer c.writeGate.Unlock()
	c.roleMu.Lock()
	c.role = role
	c.roleMu.Unlock()
}

// ReplayCandidates returns every instruction with clock > Clocked() and
// clock <= Clock() (the accept-clock), in ascending order: instructions
// accepted into the log but not yet durably applied to the data store.
func (c *Core) ReplayCandidates() ([]types.Instruction, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	clocked, err := c.Clocked()
	if err != nil {
		return nil, err
	}
	tick, err := c.Clock()
	if err != nil {
		return nil, err
	}

	var out []types.Instruction
	for clk := clocked + 1; clk <= tick; clk++ {
		payload, ok, err := c.instrLog.Get(clk)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, types.Instruction{Clock: clk, Payload: payload})
	}
	return out, nil
}

// coalesceWindow is the background-event delay used in background.go.
const coalesceWindow = time.Second
