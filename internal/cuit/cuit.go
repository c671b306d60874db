// Package cuit validates the 11-digit Argentine tax identifier used as
// the assistant's sole authentication credential.
package cuit

// mod-11 weight vector for the first ten digits.
var weights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// Valid reports whether s is a well-formed CUIT: exactly 11 digits whose
// check digit matches the mod-11 computation. Remainder exceptions follow
// the standard mapping: 11 -> 0, 10 -> 9.
func Valid(s string) bool {
	if len(s) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		sum += int(c-'0') * weights[i]
	}
	last := s[10]
	if last < '0' || last > '9' {
		return false
	}

	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 9
	}
	return int(last-'0') == check
}

// Normalize strips separators commonly typed in CUITs ("20-12345678-6",
// spaces, dots) so the gate can accept lightly formatted input.
func Normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-', '.', ' ':
			continue
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
