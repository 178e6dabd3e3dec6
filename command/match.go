package command

import "strings"

// MatchParameter walks resp and param in lockstep, applying the
// controller's two canonicalization tolerances, and returns the suffix
// of resp following the matched parameter plus whether the match
// succeeded. Ported field-for-field from the reference SDK's
// stringCmpParameter.
//
// Tolerances: (i) any run of ASCII spaces in one string matches any
// non-empty run of spaces in the other; (ii) any run of '0' digits not
// immediately preceded by a digit matches any such run in the other
// string (leading-zero tolerance). Any other difference is a mismatch.
func MatchParameter(resp, param string) (string, bool) {
	var i, j int
	lastWasDigit := false

	for j < len(param) {
		if i >= len(resp) {
			return "", false
		}

		cp := param[j]
		cs := resp[i]

		if !lastWasDigit && (cp == '0' || cs == '0') {
			for j < len(param) && param[j] == '0' {
				j++
			}
			for i < len(resp) && resp[i] == '0' {
				i++
			}
			lastWasDigit = true
			continue
		}

		if cp == ' ' || cs == ' ' {
			for j < len(param) && param[j] == ' ' {
				j++
			}
			for i < len(resp) && resp[i] == ' ' {
				i++
			}
			lastWasDigit = false
			continue
		}

		if cp != cs {
			return "", false
		}

		lastWasDigit = cp >= '0' && cp <= '9'
		i++
		j++
	}

	for i < len(resp) && resp[i] == ' ' {
		i++
	}

	return strings.ReplaceAll(resp[i:], "\x00", ""), true
}
