package detector

import (
	"math"
	"sort"
)

// A DarkCurrentLaw is the fitted model for one camera's dark current,
// in e-/pix/s: A * exp(B*T^2 + C*T), with T in Celsius.
type DarkCurrentLaw struct {
	A, B, C float64
}

func (l DarkCurrentLaw) At(tempC float64) float64 {
	return l.A * math.Exp(l.B*tempC*tempC+l.C*tempC)
}

// Fits from the SPARC4 dark current characterization, per serial number.
var darkCurrentLaws = map[int]DarkCurrentLaw{
	9914: {24.66, 0.0015, 0.29},
	9915: {35.26, 0.0019, 0.31},
	9916: {9.67, 0.0012, 0.25},
	9917: {5.92, 0.0005, 0.18},
}

// DarkCurrentLawFor returns the fitted law for a camera.
func DarkCurrentLawFor(serial int) (DarkCurrentLaw, error) {
	l, exists := darkCurrentLaws[serial]
	if !exists {
		return DarkCurrentLaw{}, &ConfigError{Field: "serialnumber", Value: serial,
			Reason: "no dark current law for this camera", Err: ErrUnknownSerial}
	}
	return l, nil
}

// DarkCurrent is the dark current (e-/pix/s) of a camera at a temperature.
func DarkCurrent(serial int, tempC float64) (float64, error) {
	l, err := DarkCurrentLawFor(serial)
	if err != nil {
		return 0, err
	}
	return l.At(tempC), nil
}

func KnownSerialNumbers() []int {
	sns := []int{}
	for sn := range darkCurrentLaws {
		sns = append(sns, sn)
	}
	sort.Ints(sns)
	return sns
}
