package detector

import (
	"fmt"
	"sort"
)

// An OperatingMode is the part of the config that picks the preamp gain.
type OperatingMode struct {
	Mode   Mode
	HSS    float64
	Preamp int
}

func (om OperatingMode) String() string {
	return fmt.Sprintf("%s%sMHz_PA%d", om.Mode.Prefix(), FormatNumber(om.HSS), om.Preamp)
}

// Preamp gains in e-/ADU, from the camera datasheet.
var gainTable = map[OperatingMode]float64{
	{ElectronMultiplying, 30, 1}: 17.2,
	{ElectronMultiplying, 30, 2}: 5.27,
	{ElectronMultiplying, 20, 1}: 16.4,
	{ElectronMultiplying, 20, 2}: 4.39,
	{ElectronMultiplying, 10, 1}: 16.0,
	{ElectronMultiplying, 10, 2}: 3.96,
	{ElectronMultiplying, 1, 1}:  15.9,
	{ElectronMultiplying, 1, 2}:  3.88,

	{Conventional, 1, 1}:   3.37,
	{Conventional, 1, 2}:   0.8,
	{Conventional, 0.1, 1}: 3.35,
	{Conventional, 0.1, 2}: 0.8,
}

// Gain looks up the preamp gain (e-/ADU) for an operating mode. A
// combination the camera doesn't offer is an error, never a zero gain.
func Gain(mode Mode, hss float64, preamp int) (float64, error) {
	om := OperatingMode{mode, hss, preamp}
	if g, exists := gainTable[om]; exists {
		return g, nil
	}
	return 0, &ConfigError{
		Field:  "operating mode",
		Value:  om,
		Reason: "no preamp gain for this combination of mode, hss and preamp",
		Err:    ErrUnsupportedMode,
	}
}

// OperatingModes lists every mode in the gain table, in a stable order.
func OperatingModes() []OperatingMode {
	oms := make([]OperatingMode, 0, len(gainTable))
	for om := range gainTable {
		oms = append(oms, om)
	}
	sort.Slice(oms, func(i, j int) bool {
		if oms[i].Mode != oms[j].Mode {
			return oms[i].Mode < oms[j].Mode
		}
		if oms[i].HSS != oms[j].HSS {
			return oms[i].HSS < oms[j].HSS
		}
		return oms[i].Preamp < oms[j].Preamp
	})
	return oms
}
