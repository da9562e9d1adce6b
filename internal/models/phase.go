package models

import "fmt"

// Phase is a client's position in the project lifecycle.
type Phase string

const (
	PhaseInformationGathering  Phase = "Phase 1: Information Gathering"
	PhaseStructureDesign       Phase = "Phase 2: Structure & Design"
	PhaseInitialDevelopment    Phase = "Phase 3: Initial Development"
	PhaseTestingQA             Phase = "Phase 4: Testing/QA"
	PhasePostLaunchMaintenance Phase = "Phase 5: Post Launch Maintenance"
	PhaseNewVersionDevelopment Phase = "Phase 6: New Version Development"
)

// FirstPhase is assigned to every newly created client.
const FirstPhase = PhaseInformationGathering

// Phases lists the lifecycle in order.
var Phases = []Phase{
	PhaseInformationGathering,
	PhaseStructureDesign,
	PhaseInitialDevelopment,
	PhaseTestingQA,
	PhasePostLaunchMaintenance,
	PhaseNewVersionDevelopment,
}

// ParsePhase returns the Phase with the given label, or an error if the label is not one of the six phases.
func ParsePhase(label string) (Phase, error) {
	for _, p := range Phases {
		if string(p) == label {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q", label)
}

// Index returns the 1-based position of the phase, or 0 for an unknown value.
func (p Phase) Index() int {
	for i, candidate := range Phases {
		if candidate == p {
			return i + 1
		}
	}
	return 0
}

// Valid reports whether p is one of the six lifecycle phases.
func (p Phase) Valid() bool {
	return p.Index() > 0
}

// Next returns the following phase. The last phase has no successor.
func (p Phase) Next() (Phase, bool) {
	i := p.Index()
	if i == 0 || i == len(Phases) {
		return "", false
	}
	return Phases[i], true
}
