package core

import "strings"

// localSuffix is the literal suffix (I4) every locally synthesised
// version string carries.
const localSuffix = "+local"

// getLocalVersion strips any existing build suffix from v and appends
// localSuffix, so getLocalVersion(v) == getLocalVersion(v+"+X") for any
// base version v (P7).
func getLocalVersion(v string) string {
	if idx := strings.IndexByte(v, '+'); idx >= 0 {
		v = v[:idx]
	}
	return v + localSuffix
}

// hasBuildSuffix reports whether v already carries a "+..." suffix.
func hasBuildSuffix(v string) bool {
	return strings.Contains(v, "+")
}
