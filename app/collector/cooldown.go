package collector

import (
	"time"
)

// CooldownGate suppresses collection for a topic that was collected
// recently. Force mode bypasses the gate.
type CooldownGate struct {
	cooldown time.Duration
}

func NewCooldownGate(cooldown time.Duration) *CooldownGate {
	return &CooldownGate{cooldown: cooldown}
}

func (g *CooldownGate) MayCollect(lastCollectedAt *time.Time, now time.Time, force bool) bool {
	if force {
		return true
	}
	if lastCollectedAt == nil {
		return true
	}
	return now.Sub(*lastCollectedAt) >= g.cooldown
}

// RemainingCooldown reports how long until the topic becomes collectable
// again. Zero means collectable now.
func (g *CooldownGate) RemainingCooldown(lastCollectedAt *time.Time, now time.Time) time.Duration {
	if lastCollectedAt == nil {
		return 0
	}
	remaining := g.cooldown - now.Sub(*lastCollectedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
