package simulator

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/millwatch/millwatch/internal/config"
)

// ErrMachineNotFound is returned by read operations that reference a machine
// id not present in the fleet. Maintenance deliberately does not use it —
// absence of a machine there is an ordinary negative result, not a fault.
var ErrMachineNotFound = errors.New("simulator: machine not found")

// Fleet owns a fixed, ordered set of machine simulators, created once at
// startup. The condition mix is deliberate — a majority of healthy machines,
// one approaching the risk threshold, and one requiring maintenance — so the
// fleet always demonstrates the full alert spectrum.
type Fleet struct {
	machines []*Machine
	byID     map[string]*Machine
}

// NewFleet builds count machines with ids M001, M002, … and assigns initial
// conditions from the fixed mix, padding with healthy beyond the first five.
//
// rng seeds each machine's private random source; pass a fixed-seed source
// for deterministic tests.
func NewFleet(count int, ranges config.SensorRanges, rng *rand.Rand) *Fleet {
	conditions := []Condition{
		ConditionHealthy, ConditionHealthy, ConditionHealthy,
		ConditionRisk, ConditionMaintenance,
	}

	f := &Fleet{byID: make(map[string]*Machine, count)}
	for i := 0; i < count; i++ {
		cond := ConditionHealthy
		if i < len(conditions) {
			cond = conditions[i]
		}
		id := fmt.Sprintf("M%03d", i+1)
		mtype := MachineTypes[rng.Intn(len(MachineTypes))]

		// Each machine gets its own source so concurrent readings on
		// different machines never contend on a shared rng.
		m := NewMachine(id, mtype, cond, ranges, rand.New(rand.NewSource(rng.Int63())))
		f.machines = append(f.machines, m)
		f.byID[id] = m

		slog.Info("simulator: machine registered",
			"id", id, "type", mtype, "condition", string(cond), "tool_wear", m.Summary().ToolWear)
	}
	return f
}

// Count returns the number of machines in the fleet.
func (f *Fleet) Count() int { return len(f.machines) }

// GenerateAll produces one reading per machine, in creation order. All
// readings carry the shared timestamp now.
func (f *Fleet) GenerateAll(now time.Time) []Reading {
	out := make([]Reading, 0, len(f.machines))
	for _, m := range f.machines {
		out = append(out, m.GenerateReading(now))
	}
	return out
}

// Generate produces a reading for the machine with the given id.
func (f *Fleet) Generate(id string, now time.Time) (Reading, error) {
	m, ok := f.byID[id]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %q", ErrMachineNotFound, id)
	}
	return m.GenerateReading(now), nil
}

// PerformMaintenance resets the tool wear of the machine with the given id.
// It returns false — not an error — if the id is unknown.
func (f *Fleet) PerformMaintenance(id string) bool {
	m, ok := f.byID[id]
	if !ok {
		return false
	}
	m.ResetWear()
	slog.Info("simulator: maintenance performed", "id", id, "tool_wear", m.Summary().ToolWear)
	return true
}

// Machines returns the current summary of every machine, in creation order.
func (f *Fleet) Machines() []MachineSummary {
	out := make([]MachineSummary, 0, len(f.machines))
	for _, m := range f.machines {
		out = append(out, m.Summary())
	}
	return out
}
