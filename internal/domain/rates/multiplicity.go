package rates

import "fmt"

// Multiplicity is a closed set of jet multiplicity thresholds. Its value is
// also the slot index inside a Registry.
type Multiplicity int

// Supported multiplicities.
const (
	SingleJets Multiplicity = iota
	DoubleJets
	TripleJets
	QuadJets

	numMultiplicities
)

var multiplicityNames = [numMultiplicities]string{ //nolint:gochecknoglobals // fixed lookup table
	SingleJets: "singleJets",
	DoubleJets: "doubleJets",
	TripleJets: "tripleJets",
	QuadJets:   "quadJets",
}

// All returns every multiplicity in ascending threshold order.
func All() []Multiplicity {
	return []Multiplicity{SingleJets, DoubleJets, TripleJets, QuadJets}
}

// Threshold is the minimum number of jets an event needs to fill the counter.
func (m Multiplicity) Threshold() int {
	return int(m) + 1
}

// Valid reports whether m is one of the supported multiplicities.
func (m Multiplicity) Valid() bool {
	return m >= SingleJets && m < numMultiplicities
}

func (m Multiplicity) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Multiplicity(%d)", int(m))
	}
	return multiplicityNames[m]
}

// ParseMultiplicity maps a counter name such as "tripleJets" to its value.
func ParseMultiplicity(name string) (Multiplicity, error) {
	for i, n := range multiplicityNames {
		if n == name {
			return Multiplicity(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCounter, name)
}
