package service

import (
	"math"
	"sort"

	"github.com/xxxsen/hemline/internal/model"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

const cmPerInch = 2.54

var measurementFields = map[string]struct{}{}

func init() {
	for _, name := range []string{
		"shoulder_width", "bust_chest", "round_underbust", "neck_circumference",
		"armhole_circumference", "arm_length_full", "arm_length_three_quarter",
		"sleeve_length", "round_sleeve_bicep", "elbow_circumference",
		"wrist_circumference", "top_length", "bust_point_nipple_to_nipple",
		"shoulder_to_bust_point", "shoulder_to_waist", "round_chest_upper_bust",
		"back_width", "back_length", "tommy_waist", "waist", "high_hip", "hip_full",
		"lap_thigh", "knee_circumference", "calf_circumference", "ankle_circumference",
		"skirt_length", "trouser_length_outseam", "inseam", "crotch_depth",
		"waist_to_hip", "waist_to_floor", "slit_height", "bust_apex_to_waist",
	} {
		measurementFields[name] = struct{}{}
	}
}

// MeasurementFields lists the accepted measurement names in sorted order.
func MeasurementFields() []string {
	out := make([]string, 0, len(measurementFields))
	for name := range measurementFields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// mergeMeasurements applies in to base, both keyed by name. Values in in are
// expressed in unit and are stored in centimeters; a nil value drops the
// measurement.
func mergeMeasurements(base model.Measurements, in map[string]*float64, unit string) (model.Measurements, error) {
	out := make(model.Measurements, len(base)+len(in))
	for k, v := range base {
		out[k] = v
	}
	for name, value := range in {
		if _, ok := measurementFields[name]; !ok {
			return nil, appErr.Invalid("unknown measurement %q", name)
		}
		if value == nil {
			delete(out, name)
			continue
		}
		if math.IsNaN(*value) || math.IsInf(*value, 0) || *value <= 0 {
			return nil, appErr.Invalid("measurement %q must be greater than 0", name)
		}
		v := *value
		if unit == model.UnitInches {
			v *= cmPerInch
		}
		out[name] = v
	}
	return out, nil
}

// displayMeasurements converts stored centimeters into unit, rounded to two
// decimals.
func displayMeasurements(stored model.Measurements, unit string) model.Measurements {
	out := make(model.Measurements, len(stored))
	for name, v := range stored {
		if unit == model.UnitInches {
			v /= cmPerInch
		}
		out[name] = math.Round(v*100) / 100
	}
	return out
}
