package common

import "regexp"

// safeTextRegexp matches the character set Organizations accepts for
// tag values attached to member accounts.
var safeTextRegexp = regexp.MustCompile(`^[a-zA-Z0-9.:+=@_/\- ]*$`)

// IsSafeText reports whether s contains only characters that are safe to
// store as an account tag value.
func IsSafeText(s string) bool {
	return safeTextRegexp.MatchString(s)
}
