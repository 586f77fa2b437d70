package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRecipients(t *testing.T) {
	got := NormalizeRecipients(
		"CP.Tunis@banque.tn",
		" cp.tunis@banque.tn ",
		"",
		"not an address",
		"Dir <dir056@banque.tn>",
		"dir056@banque.tn",
	)
	assert.Equal(t, []string{"cp.tunis@banque.tn", "dir056@banque.tn"}, got)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Cp Grand Tunis", DisplayName("cp.grand-tunis@banque.tn"))
	assert.Equal(t, "Rh", DisplayName("rh@banque.tn"))
	assert.Equal(t, "Madame, Monsieur", DisplayName(""))
}
