package cache

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Policy selects how a victim way is chosen when a set is full.
type Policy int

const (
	// LRU evicts the least recently used way.
	LRU Policy = iota
	// Random evicts a uniformly random way.
	Random
	// StaticPartition reserves a fixed number of ways per set for each of two
	// cores.
	StaticPartition
	// DynamicPartition moves ways toward the core whose miss rate grew more.
	DynamicPartition
)

var policyNames = map[Policy]string{
	LRU:              "lru",
	Random:           "random",
	StaticPartition:  "swp",
	DynamicPartition: "dwp",
}

// String returns the short name of the policy.
func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// IsPartition reports whether the policy splits ways between cores.
func (p Policy) IsPartition() bool {
	return p == StaticPartition || p == DynamicPartition
}

// ParsePolicy converts a policy name or number into a Policy.
// The numeric forms are the trace driver selectors (0 = LRU, 1 = random,
// 2 = static, 3 = dynamic).
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lru", "0":
		return LRU, nil
	case "random", "rand", "1":
		return Random, nil
	case "swp", "static", "2":
		return StaticPartition, nil
	case "dwp", "dynamic", "3":
		return DynamicPartition, nil
	}
	return 0, fmt.Errorf("%w: unknown replacement policy %q", ErrInvalidConfig, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown replacement policy %d", ErrInvalidConfig, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Quota is the number of ways per set each of the two cores may hold.
type Quota struct {
	Core0 int
	Core1 int
}

// limit returns the quota of the given partition owner (0 or 1).
func (q Quota) limit(owner int) int {
	if owner == 0 {
		return q.Core0
	}
	return q.Core1
}

// A VictimSelector picks the way to evict from a set in which every way
// holds a valid line.
type VictimSelector interface {
	SelectVictim(ways []Line, coreID int, quota Quota) int
}

// NewSelector returns the victim selector for a policy.
func NewSelector(policy Policy, seed uint64) (VictimSelector, error) {
	switch policy {
	case LRU:
		return LRUSelector{}, nil
	case Random:
		return NewRandomSelector(seed), nil
	case StaticPartition, DynamicPartition:
		return PartitionSelector{}, nil
	}
	return nil, fmt.Errorf("%w: unknown replacement policy %d", ErrInvalidConfig, int(policy))
}

// LRUSelector evicts the way with the oldest access time. Ties go to the
// lowest way.
type LRUSelector struct{}

// SelectVictim implements VictimSelector.
func (LRUSelector) SelectVictim(ways []Line, _ int, _ Quota) int {
	return lruWay(ways)
}

func lruWay(ways []Line) int {
	victim := 0
	for way := 1; way < len(ways); way++ {
		if ways[way].LastAccess < ways[victim].LastAccess {
			victim = way
		}
	}
	return victim
}

// RandomSelector evicts a uniformly random way. The generator is seeded so
// that runs are reproducible.
type RandomSelector struct {
	rng *rand.Rand
}

// NewRandomSelector creates a RandomSelector with the given seed.
func NewRandomSelector(seed uint64) *RandomSelector {
	return &RandomSelector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// SelectVictim implements VictimSelector.
func (s *RandomSelector) SelectVictim(ways []Line, _ int, _ Quota) int {
	return s.rng.IntN(len(ways))
}

// PartitionSelector implements way partitioning between two cores.
//
// Core 0 owns the lines installed by core 0; every other core id counts as
// core 1. If the other core holds more ways than its quota, its least
// recently used line is evicted. Otherwise the requester evicts its own least
// recently used line. A requester that owns nothing in the set falls back to
// plain LRU.
type PartitionSelector struct{}

// SelectVictim implements VictimSelector.
func (PartitionSelector) SelectVictim(ways []Line, coreID int, quota Quota) int {
	var taken [2]int
	lru := [2]int{-1, -1}

	for way, line := range ways {
		owner := partitionOwner(line.CoreID)
		taken[owner]++
		if lru[owner] < 0 || line.LastAccess < ways[lru[owner]].LastAccess {
			lru[owner] = way
		}
	}

	self := partitionOwner(coreID)
	other := 1 - self

	if taken[other] > quota.limit(other) {
		return lru[other]
	}
	if lru[self] < 0 {
		return lruWay(ways)
	}
	return lru[self]
}

func partitionOwner(coreID int) int {
	if coreID == 0 {
		return 0
	}
	return 1
}
