package schema

import "strings"

// ValidateAddress reports whether input is four dot-separated decimal
// groups, each in [0,255], with no surrounding characters. It does not
// trim; callers must trim before validating and before use so the
// validated string is exactly the string that gets dialed.
func ValidateAddress(input string) bool {
	groups := strings.Split(input, ".")
	if len(groups) != 4 {
		return false
	}
	for _, group := range groups {
		if group == "" || len(group) > 3 {
			return false
		}
		value := 0
		for _, r := range group {
			if r < '0' || r > '9' {
				return false
			}
			value = value*10 + int(r-'0')
		}
		if value > 255 {
			return false
		}
	}
	return true
}

// ValidateToken reports whether the trimmed token is non-empty.
func ValidateToken(input string) bool {
	return strings.TrimSpace(input) != ""
}
