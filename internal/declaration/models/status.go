package models

import "strings"

// Status is the review state of a declaration.
type Status string

const (
	StatusSoumis    Status = "SOUMIS"
	StatusEnCours   Status = "EN_COURS"
	StatusEnEnquete Status = "EN_ENQUETE"
	StatusValide    Status = "VALIDE"
	StatusRejete    Status = "REJETE"
	StatusCloture   Status = "CLOTURE"
)

// transitions is the complete state machine. A status absent from a set can
// never be reached from that state; CLOTURE is terminal.
var transitions = map[Status][]Status{
	StatusSoumis:    {StatusEnCours, StatusRejete},
	StatusEnCours:   {StatusEnEnquete, StatusValide, StatusRejete},
	StatusEnEnquete: {StatusValide, StatusRejete},
	StatusValide:    {StatusCloture},
	StatusRejete:    {StatusSoumis},
	StatusCloture:   {},
}

// AllStatuses lists the states in workflow order.
func AllStatuses() []Status {
	return []Status{StatusSoumis, StatusEnCours, StatusEnEnquete, StatusValide, StatusRejete, StatusCloture}
}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is one of the six states.
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// AllowedTargets returns a copy of the states reachable from s.
func (s Status) AllowedTargets() []Status {
	return append([]Status{}, transitions[s]...)
}

// CanTransitionTo reports whether target is reachable from s in one step.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// IsOpen reports whether the declaration is still being processed.
func (s Status) IsOpen() bool {
	return s == StatusSoumis || s == StatusEnCours || s == StatusEnEnquete
}

// ParseStatus normalizes case and reports whether the name is a known state.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.IsValid()
}
