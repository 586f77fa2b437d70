package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_ExhaustivePairs(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusSoumis:    {StatusEnCours: true, StatusRejete: true},
		StatusEnCours:   {StatusEnEnquete: true, StatusValide: true, StatusRejete: true},
		StatusEnEnquete: {StatusValide: true, StatusRejete: true},
		StatusValide:    {StatusCloture: true},
		StatusRejete:    {StatusSoumis: true},
		StatusCloture:   {},
	}
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_Helpers(t *testing.T) {
	assert.True(t, StatusCloture.IsTerminal())
	assert.False(t, StatusRejete.IsTerminal())
	assert.Empty(t, StatusCloture.AllowedTargets())

	targets := StatusSoumis.AllowedTargets()
	targets[0] = StatusCloture
	assert.Equal(t, []Status{StatusEnCours, StatusRejete}, StatusSoumis.AllowedTargets(), "targets are copied")

	s, ok := ParseStatus(" en_cours ")
	assert.True(t, ok)
	assert.Equal(t, StatusEnCours, s)
	_, ok = ParseStatus("ARCHIVE")
	assert.False(t, ok)
}
