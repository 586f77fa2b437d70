// Package email normalizes recipient lists for outgoing notifications.
package email

import (
	"net/mail"
	"strings"
	"unicode"

	s "cpcaisse/pkg/platform/strings"
)

// NormalizeRecipients lowercases, trims and dedupes addresses, dropping any
// that do not parse as a bare RFC 5322 address.
func NormalizeRecipients(addrs ...string) []string {
	cleaned := s.DedupeAndTrimLower(addrs)
	out := make([]string, 0, len(cleaned))
	for _, a := range cleaned {
		parsed, err := mail.ParseAddress(a)
		if err != nil || parsed.Address != a {
			continue
		}
		out = append(out, a)
	}
	return out
}

// DisplayName derives a greeting name from an address local part,
// e.g. "cp.grand-tunis@banque.tn" becomes "Cp Grand Tunis".
func DisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}
	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Madame, Monsieur"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
