package alerts

import (
	"strconv"
	"strings"

	"github.com/millwatch/millwatch/internal/monitor"
)

// evalCondition evaluates a rule condition string against a prediction
// verdict.
//
// Supported expressions (field operator value):
//
//	failure_probability >= 0.6
//	normal_probability < 0.4
//	tool_wear > 200
//	prediction == 1
//	cycles > 1000
//	band == maintenance_required
//	alert == true
//
// Band names are compared in their configured form: lower-case with
// underscores ("maintenance_required"), matching the config file.
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, v monitor.PredictionResult) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "band":
		if op == "==" {
			return bandKey(v.HealthStatus) == rhs, v.FailureProbability
		}
		return false, 0

	case "alert":
		if op == "==" {
			want := rhs == "true"
			return v.Alert == want, v.FailureProbability
		}
		return false, 0

	default:
		val, ok := numericField(field, v)
		if !ok {
			return false, 0
		}
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return false, 0
		}
		return compareFloat(val, op, threshold), val
	}
}

// numericField maps a field name to its value in the verdict.
func numericField(field string, v monitor.PredictionResult) (float64, bool) {
	switch field {
	case "failure_probability":
		return v.FailureProbability, true
	case "normal_probability":
		return v.NormalProbability, true
	case "prediction":
		return float64(v.Prediction), true
	case "tool_wear":
		return float64(v.Sensor.ToolWear), true
	case "torque":
		return v.Sensor.Torque, true
	case "process_temperature":
		return v.Sensor.ProcessTemp, true
	case "cycles":
		return float64(v.Sensor.Cycles), true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

// bandKey converts a reported status label back to its config-file key:
// "MAINTENANCE REQUIRED" → "maintenance_required".
func bandKey(status string) string {
	return strings.ToLower(strings.ReplaceAll(status, " ", "_"))
}
