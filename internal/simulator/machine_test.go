package simulator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/millwatch/millwatch/internal/config"
)

func testRanges() config.SensorRanges {
	return config.Defaults().Sensors
}

func newTestMachine(cond Condition, seed int64) *Machine {
	return NewMachine("M001", "M", cond, testRanges(), rand.New(rand.NewSource(seed)))
}

// --- clamp invariant --------------------------------------------------------

func TestGenerateReading_ClampInvariant(t *testing.T) {
	conditions := []Condition{ConditionHealthy, ConditionRisk, ConditionMaintenance, Condition("bogus")}
	ranges := testRanges()
	now := time.Now()

	for _, cond := range conditions {
		cond := cond
		t.Run(string(cond), func(t *testing.T) {
			m := newTestMachine(cond, 42)
			for i := 0; i < 500; i++ {
				r := m.GenerateReading(now)

				if r.AirTemp < ranges.AirTemperature.Min || r.AirTemp > ranges.AirTemperature.Max {
					t.Fatalf("cycle %d: air temp %v outside [%v, %v]",
						i, r.AirTemp, ranges.AirTemperature.Min, ranges.AirTemperature.Max)
				}
				if r.ProcessTemp < ranges.ProcessTemperature.Min || r.ProcessTemp > ranges.ProcessTemperature.Max {
					t.Fatalf("cycle %d: process temp %v outside [%v, %v]",
						i, r.ProcessTemp, ranges.ProcessTemperature.Min, ranges.ProcessTemperature.Max)
				}
				if float64(r.RotationalSpeed) < ranges.RotationalSpeed.Min || float64(r.RotationalSpeed) > ranges.RotationalSpeed.Max {
					t.Fatalf("cycle %d: speed %d outside [%v, %v]",
						i, r.RotationalSpeed, ranges.RotationalSpeed.Min, ranges.RotationalSpeed.Max)
				}
				if r.Torque < ranges.Torque.Min || r.Torque > ranges.Torque.Max {
					t.Fatalf("cycle %d: torque %v outside [%v, %v]",
						i, r.Torque, ranges.Torque.Min, ranges.Torque.Max)
				}
				if r.ToolWear < 0 || r.ToolWear > 250 {
					t.Fatalf("cycle %d: tool wear %d outside [0, 250]", i, r.ToolWear)
				}
			}
		})
	}
}

// --- wear monotonicity ------------------------------------------------------

func TestToolWear_MonotoneUntilReset(t *testing.T) {
	m := newTestMachine(ConditionRisk, 7)
	now := time.Now()

	prev := m.Summary().ToolWear
	for i := 0; i < 300; i++ {
		r := m.GenerateReading(now)
		if r.ToolWear < prev {
			t.Fatalf("cycle %d: wear decreased from %d to %d without maintenance", i, prev, r.ToolWear)
		}
		prev = r.ToolWear
	}

	m.ResetWear()
	after := m.Summary().ToolWear
	if after >= prev {
		t.Fatalf("ResetWear: wear %d did not decrease from %d", after, prev)
	}
	if after >= 20 {
		t.Fatalf("ResetWear: wear %d, want < 20", after)
	}
}

func TestToolWear_CapsAt250(t *testing.T) {
	m := newTestMachine(ConditionMaintenance, 3)
	now := time.Now()

	// Enough cycles to push wear well past the cap if it were unbounded.
	var r Reading
	for i := 0; i < 2000; i++ {
		r = m.GenerateReading(now)
	}
	if r.ToolWear > 250 {
		t.Fatalf("wear %d exceeded the 250 minute cap", r.ToolWear)
	}
}

// --- initial conditions -----------------------------------------------------

func TestNewMachine_InitialConditionDistributions(t *testing.T) {
	tests := []struct {
		cond         Condition
		wearMin      int
		wearMax      int
	}{
		{ConditionHealthy, 5, 45},
		{ConditionRisk, 165, 185},
		{ConditionMaintenance, 180, 220},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.cond), func(t *testing.T) {
			// Several seeds so a lucky draw cannot hide a wrong distribution.
			for seed := int64(0); seed < 20; seed++ {
				m := newTestMachine(tt.cond, seed)
				w := m.Summary().ToolWear
				if w < tt.wearMin || w > tt.wearMax {
					t.Fatalf("seed %d: initial wear %d outside [%d, %d]", seed, w, tt.wearMin, tt.wearMax)
				}
			}
		})
	}
}

// --- reading shape ----------------------------------------------------------

func TestGenerateReading_Fields(t *testing.T) {
	m := newTestMachine(ConditionHealthy, 11)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	r1 := m.GenerateReading(now)
	r2 := m.GenerateReading(now)

	if r1.MachineID != "M001" || r1.Type != "M" {
		t.Errorf("identity: got %s/%s, want M001/M", r1.MachineID, r1.Type)
	}
	if !r1.Timestamp.Equal(now) {
		t.Errorf("timestamp: got %v, want %v", r1.Timestamp, now)
	}
	if r1.OperatingMode != "normal" {
		t.Errorf("operating mode: got %q, want normal", r1.OperatingMode)
	}
	if r1.Cycles != 1 || r2.Cycles != 2 {
		t.Errorf("cycles: got %d then %d, want 1 then 2", r1.Cycles, r2.Cycles)
	}
}

func TestGenerateReading_Deterministic(t *testing.T) {
	now := time.Now()
	a := newTestMachine(ConditionHealthy, 99)
	b := newTestMachine(ConditionHealthy, 99)

	for i := 0; i < 50; i++ {
		ra := a.GenerateReading(now)
		rb := b.GenerateReading(now)
		if ra != rb {
			t.Fatalf("cycle %d: same seed diverged: %+v vs %+v", i, ra, rb)
		}
	}
}
