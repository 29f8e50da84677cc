package recording

import "strings"

// IsMetadata reports whether a source ID names dashboard metadata rather than
// telemetry. Metadata paths contain a segment starting with "." (the current
// convention) or a segment wrapped in tildes such as "~METADATA~" (the legacy
// one).
func IsMetadata(sourceID string) bool {
	for _, seg := range strings.Split(sourceID, "/") {
		if len(seg) > 1 && seg[0] == '.' {
			return true
		}
		if len(seg) > 2 && seg[0] == '~' && seg[len(seg)-1] == '~' {
			return true
		}
	}
	return false
}
