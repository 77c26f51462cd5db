package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/millwatch/millwatch/internal/config"
)

// MachineTypes is the closed vocabulary of machine product types.
var MachineTypes = []string{"L", "M", "H"}

// maxToolWear is the physical tool-wear ceiling in minutes.
const maxToolWear = 250.0

// driftCycle is the cadence at which sensor baselines drift: every
// driftCycle-th reading nudges the air-temperature, speed, and torque
// baselines by a small signed delta. This is the only baseline mutation
// path besides maintenance.
const driftCycle = 100

// Condition is a named initial state for a machine's sensor profile.
type Condition string

const (
	// ConditionHealthy starts with low wear and optimal baselines.
	ConditionHealthy Condition = "healthy"

	// ConditionRisk starts with high wear approaching the maintenance
	// threshold and degraded baselines.
	ConditionRisk Condition = "risk"

	// ConditionMaintenance starts with very high wear and clearly degraded
	// baselines.
	ConditionMaintenance Condition = "maintenance"
)

// Reading is one immutable sensor sample produced by a machine tick.
type Reading struct {
	MachineID       string
	Type            string
	AirTemp         float64 // Kelvin, one decimal
	ProcessTemp     float64 // Kelvin, one decimal
	RotationalSpeed int     // rpm
	Torque          float64 // Nm, one decimal
	ToolWear        int     // minutes
	Timestamp       time.Time
	OperatingMode   string
	Cycles          int
}

// MachineSummary is the fleet-status view of one machine.
type MachineSummary struct {
	MachineID       string  `json:"machine_id"`
	Type            string  `json:"type"`
	ToolWear        int     `json:"tool_wear"`
	OperatingMode   string  `json:"operating_mode"`
	Cycles          int     `json:"cycles"`
	DegradationRate float64 `json:"degradation_rate"`
}

// Machine simulates the sensor suite of a single milling machine.
//
// Each Machine is the sole owner of its sensor profile: wear accumulates
// monotonically across GenerateReading calls, baselines drift slowly at a
// fixed cycle cadence, and only ResetWear ever decreases wear. A per-machine
// mutex serializes a reading against a racing maintenance reset, so
// concurrent requests touching different machines never contend.
type Machine struct {
	mu  sync.Mutex
	rng *rand.Rand

	id     string
	mtype  string
	ranges config.SensorRanges

	toolWear        float64
	airBaseline     float64
	processBaseline float64
	speedBaseline   float64
	torqueBaseline  float64
	degradationRate float64
	operatingMode   string
	cycles          int
}

// NewMachine creates a machine with the given initial condition. The starting
// wear and baseline distributions are distinct per condition so a freshly
// built fleet demonstrates the full alert spectrum. Any unrecognized
// condition falls back to a healthy-like profile.
func NewMachine(id, mtype string, cond Condition, ranges config.SensorRanges, rng *rand.Rand) *Machine {
	m := &Machine{
		rng:           rng,
		id:            id,
		mtype:         mtype,
		ranges:        ranges,
		operatingMode: "normal",
	}

	switch cond {
	case ConditionHealthy:
		m.toolWear = m.uniform(5, 45)
		m.airBaseline = m.uniform(296, 299.5)
		m.processBaseline = m.uniform(306, 309.5)
		m.speedBaseline = m.uniform(1600, 2100)
		m.torqueBaseline = m.uniform(22, 38)
		m.degradationRate = m.uniform(0.15, 0.3)
	case ConditionRisk:
		m.toolWear = m.uniform(165, 185)
		m.airBaseline = m.uniform(301, 303)
		m.processBaseline = m.uniform(311.2, 312.8)
		m.speedBaseline = m.uniform(1240, 1300)
		m.torqueBaseline = m.uniform(63, 68)
		m.degradationRate = m.uniform(0.2, 0.35)
	case ConditionMaintenance:
		m.toolWear = m.uniform(180, 220)
		m.airBaseline = m.uniform(301, 303.5)
		m.processBaseline = m.uniform(311, 313)
		m.speedBaseline = m.uniform(1220, 1320)
		m.torqueBaseline = m.uniform(62, 70)
		m.degradationRate = m.uniform(0.2, 0.35)
	default:
		m.toolWear = m.uniform(5, 40)
		m.airBaseline = m.uniform(296, 300)
		m.processBaseline = m.uniform(306, 310)
		m.speedBaseline = m.uniform(1500, 2000)
		m.torqueBaseline = m.uniform(25, 40)
		m.degradationRate = m.uniform(0.2, 0.4)
	}

	return m
}

// ID returns the machine's identifier.
func (m *Machine) ID() string { return m.id }

// GenerateReading advances the machine by one cycle and returns a correlated
// sensor sample.
//
// now is passed explicitly so callers (and tests) control the clock without
// sleeping. Use time.Now() in production; a fleet-wide batch passes one
// shared timestamp so all readings in the batch carry the same instant.
//
// Every value is clamped to the configured physical range before it leaves
// the simulator — the downstream classifier was trained on bounded data, so
// an unclamped sample would silently invalidate its predictions.
func (m *Machine) GenerateReading(now time.Time) Reading {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cycles++

	// Gradual tool wear; degradation rate sets the pace, the uniform factor
	// adds cycle-to-cycle variation.
	wearIncrement := m.degradationRate * m.uniform(0.1, 0.3)
	m.toolWear = math.Min(m.toolWear+wearIncrement, maxToolWear)
	wearFactor := m.toolWear / maxToolWear

	airTemp := clamp(m.airBaseline+m.gauss(0.2), m.ranges.AirTemperature)

	// Process temperature tracks air temperature and creeps up with wear.
	processTemp := clamp(
		airTemp+m.uniform(8, 12)+m.gauss(0.3)+wearFactor*1.0,
		m.ranges.ProcessTemperature,
	)

	speed := clamp(m.speedBaseline+m.gauss(20), m.ranges.RotationalSpeed)

	// High wear makes the spindle work harder.
	torqueBase := m.torqueBaseline
	if wearFactor > 0.6 {
		torqueBase += m.uniform(0, 3)
	}
	torque := clamp(torqueBase+m.gauss(1.5), m.ranges.Torque)

	// Long-term aging: baselines drift a little every driftCycle readings.
	if m.cycles%driftCycle == 0 {
		m.airBaseline += m.uniform(-0.1, 0.1)
		m.speedBaseline += m.uniform(-5, 5)
		m.torqueBaseline += m.uniform(-0.5, 0.5)
	}

	return Reading{
		MachineID:       m.id,
		Type:            m.mtype,
		AirTemp:         round1(airTemp),
		ProcessTemp:     round1(processTemp),
		RotationalSpeed: int(speed),
		Torque:          round1(torque),
		ToolWear:        int(m.toolWear),
		Timestamp:       now,
		OperatingMode:   m.operatingMode,
		Cycles:          m.cycles,
	}
}

// ResetWear simulates a maintenance event: tool wear drops to a fresh value
// and the degradation rate is resampled to a slow range. This is the only
// operation that decreases wear.
func (m *Machine) ResetWear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.toolWear = m.uniform(0, 20)
	m.degradationRate = m.uniform(0.2, 0.5)
}

// Summary returns the machine's current profile state.
func (m *Machine) Summary() MachineSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MachineSummary{
		MachineID:       m.id,
		Type:            m.mtype,
		ToolWear:        int(m.toolWear),
		OperatingMode:   m.operatingMode,
		Cycles:          m.cycles,
		DegradationRate: math.Round(m.degradationRate*100) / 100,
	}
}

// uniform samples from [lo, hi). The caller must hold m.mu (or be the
// constructor, which runs before the machine is shared).
func (m *Machine) uniform(lo, hi float64) float64 {
	return lo + m.rng.Float64()*(hi-lo)
}

// gauss samples from a zero-mean normal distribution with the given sigma.
func (m *Machine) gauss(sigma float64) float64 {
	return m.rng.NormFloat64() * sigma
}

// clamp restricts v to the sensor's configured physical range.
func clamp(v float64, r config.Range) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// round1 rounds v to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
