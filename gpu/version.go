package gpu

import "regexp"

var version300 = regexp.MustCompile(`(?m)^\s*#version\s+300\s+es\b`)

// DetectVersion returns Version2 when source carries a "#version 300 es"
// directive on its own line and Version1 otherwise.
func DetectVersion(source string) Version {
	if version300.MatchString(source) {
		return Version2
	}
	return Version1
}
