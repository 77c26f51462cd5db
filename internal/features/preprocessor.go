package features

import (
	"github.com/millwatch/millwatch/internal/model"
	"github.com/millwatch/millwatch/internal/simulator"
)

// Canonical feature column names, matching the schema the offline trainer
// writes into model_metadata.json.
const (
	ColAirTemp     = "Air_temperature_K"
	ColProcessTemp = "Process_temperature_K"
	ColSpeed       = "Rotational_speed_rpm"
	ColTorque      = "Torque_Nm"
	ColToolWear    = "Tool_wear_min"
	ColTypeEncoded = "Type_encoded"
	ColTempDiff    = "Temp_diff"
	ColPower       = "Power"
)

// Transform maps a raw reading into the fixed-order numeric vector the
// classifier expects. The output index of every feature is dictated by
// featureColumns — the ordered list recorded in the model's metadata —
// never by any ordering in this package. A column name the preprocessor
// does not recognize fails with an InvalidInputError naming it, as does a
// machine type outside the encoder's vocabulary.
func Transform(r simulator.Reading, enc *model.Encoder, featureColumns []string) ([]float64, error) {
	typeCode, ok := enc.Encode(r.Type)
	if !ok {
		return nil, &InvalidInputError{Field: "Type", Reason: "value " + r.Type + " is outside the trained vocabulary"}
	}

	// Derived features, computed exactly as during training.
	tempDiff := r.ProcessTemp - r.AirTemp
	power := r.Torque * float64(r.RotationalSpeed) / 1000

	values := map[string]float64{
		ColAirTemp:     r.AirTemp,
		ColProcessTemp: r.ProcessTemp,
		ColSpeed:       float64(r.RotationalSpeed),
		ColTorque:      r.Torque,
		ColToolWear:    float64(r.ToolWear),
		ColTypeEncoded: typeCode,
		ColTempDiff:    tempDiff,
		ColPower:       power,
	}

	vec := make([]float64, 0, len(featureColumns))
	for _, col := range featureColumns {
		v, ok := values[col]
		if !ok {
			return nil, &InvalidInputError{Field: col, Reason: "unknown feature column"}
		}
		vec = append(vec, v)
	}
	return vec, nil
}
