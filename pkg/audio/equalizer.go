package audio

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEqualizer is returned by [ParseEqualizer] for unknown preset names.
var ErrInvalidEqualizer = errors.New("audio: invalid equalizer")

// BandCount is the number of equalizer bands an audio node exposes.
const BandCount = 15

// Equalizer names one of the fixed equalizer presets.
type Equalizer string

const (
	EqualizerFlat  Equalizer = "flat"
	EqualizerBoost Equalizer = "boost"
	EqualizerMetal Equalizer = "metal"
	EqualizerPiano Equalizer = "piano"
)

// presetBands maps every preset to its per-band gains (-0.25 to 1.0).
var presetBands = map[Equalizer][BandCount]float64{
	EqualizerFlat:  {},
	EqualizerBoost: {-0.075, 0.125, 0.125, 0.1, 0.1, 0.05, 0.075, 0, 0, 0, 0, 0, 0.125, 0.15, 0.05},
	EqualizerMetal: {0, 0.1, 0.1, 0.15, 0.13, 0.1, 0, 0.125, 0.175, 0.175, 0.125, 0.125, 0.1, 0.075, 0},
	EqualizerPiano: {-0.25, -0.25, -0.125, 0, 0.25, 0.25, 0, -0.25, -0.25, 0, 0, 0.5, 0.25, -0.025, 0},
}

// Equalizers returns every preset in display order.
func Equalizers() []Equalizer {
	return []Equalizer{EqualizerFlat, EqualizerBoost, EqualizerMetal, EqualizerPiano}
}

// ParseEqualizer resolves a case-insensitive preset name.
func ParseEqualizer(name string) (Equalizer, error) {
	eq := Equalizer(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := presetBands[eq]; !ok {
		return "", fmt.Errorf("%w: %q (valid: %s)", ErrInvalidEqualizer, name, strings.Join(EqualizerNames(), ", "))
	}
	return eq, nil
}

// EqualizerNames returns the preset names in display order.
func EqualizerNames() []string {
	eqs := Equalizers()
	names := make([]string, len(eqs))
	for i, eq := range eqs {
		names[i] = string(eq)
	}
	return names
}

// Bands returns the gains of eq. Unknown presets yield a flat response.
func (eq Equalizer) Bands() [BandCount]float64 {
	return presetBands[eq]
}

// Valid reports whether eq is a known preset.
func (eq Equalizer) Valid() bool {
	_, ok := presetBands[eq]
	return ok
}

// String returns the preset name.
func (eq Equalizer) String() string {
	return string(eq)
}
