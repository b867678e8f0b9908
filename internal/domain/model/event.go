// Package model contains domain models passed between layers.
package model

// Event is one decoded trigger event. It is only valid until the source
// advances to the next event.
type Event struct {
	Position int64     // zero-based position within the event source
	JetEt    []float64 // transverse energies of the reconstructed jets, GeV
}

// Feature is the per-event summary the rate counters are filled with.
type Feature struct {
	MaxJetEt float64 // leading jet Et; 0 when there are no jets
	JetCount int     // jet multiplicity
}

// Extract derives the Feature of an event. The running maximum starts at
// zero, so events whose jets all carry non-positive Et report 0.
func Extract(e Event) Feature {
	maxEt := 0.0
	for _, et := range e.JetEt {
		if et > maxEt {
			maxEt = et
		}
	}
	return Feature{MaxJetEt: maxEt, JetCount: len(e.JetEt)}
}
