package features

import (
	"time"

	"github.com/millwatch/millwatch/internal/simulator"
)

// SensorPayload is the boundary adapter for externally supplied readings.
// Two naming conventions are accepted for each sensor — the bracketed-unit
// spelling from the training dataset ("Air temperature [K]") and the
// normalized spelling ("Air_temperature_K") — and both resolve to the same
// canonical field. Values are pointers so a missing field is
// distinguishable from a zero and can be reported by name.
type SensorPayload struct {
	MachineID string `json:"machine_id"`
	Type      string `json:"Type"`

	AirTemp     *float64 `json:"Air temperature [K]"`
	AirTempNorm *float64 `json:"Air_temperature_K"`

	ProcessTemp     *float64 `json:"Process temperature [K]"`
	ProcessTempNorm *float64 `json:"Process_temperature_K"`

	Speed     *float64 `json:"Rotational speed [rpm]"`
	SpeedNorm *float64 `json:"Rotational_speed_rpm"`

	Torque     *float64 `json:"Torque [Nm]"`
	TorqueNorm *float64 `json:"Torque_Nm"`

	ToolWear     *float64 `json:"Tool wear [min]"`
	ToolWearNorm *float64 `json:"Tool_wear_min"`
}

// Normalize resolves the accepted spellings into one canonical Reading. A
// field present under neither spelling fails with an InvalidInputError
// carrying the bracketed (primary) name. The core pipeline only ever sees
// the canonical structure.
func (p *SensorPayload) Normalize(now time.Time) (simulator.Reading, error) {
	if p.Type == "" {
		return simulator.Reading{}, &InvalidInputError{Field: "Type"}
	}

	airTemp, err := resolve("Air temperature [K]", p.AirTemp, p.AirTempNorm)
	if err != nil {
		return simulator.Reading{}, err
	}
	processTemp, err := resolve("Process temperature [K]", p.ProcessTemp, p.ProcessTempNorm)
	if err != nil {
		return simulator.Reading{}, err
	}
	speed, err := resolve("Rotational speed [rpm]", p.Speed, p.SpeedNorm)
	if err != nil {
		return simulator.Reading{}, err
	}
	torque, err := resolve("Torque [Nm]", p.Torque, p.TorqueNorm)
	if err != nil {
		return simulator.Reading{}, err
	}
	toolWear, err := resolve("Tool wear [min]", p.ToolWear, p.ToolWearNorm)
	if err != nil {
		return simulator.Reading{}, err
	}

	machineID := p.MachineID
	if machineID == "" {
		machineID = "Unknown"
	}

	return simulator.Reading{
		MachineID:       machineID,
		Type:            p.Type,
		AirTemp:         airTemp,
		ProcessTemp:     processTemp,
		RotationalSpeed: int(speed),
		Torque:          torque,
		ToolWear:        int(toolWear),
		Timestamp:       now,
		OperatingMode:   "external",
	}, nil
}

// resolve returns the first non-nil value, preferring the bracketed spelling.
func resolve(field string, primary, fallback *float64) (float64, error) {
	if primary != nil {
		return *primary, nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return 0, &InvalidInputError{Field: field}
}
