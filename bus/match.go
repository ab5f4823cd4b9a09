package bus

import "strings"

// Match reports whether topic name matches pattern.
//
//	"graphql_purge"   exact match
//	"purge.*"         one dot-separated segment, e.g. "purge.nodes"
//	"*"               everything
func Match(pattern, name string) bool {
	if pattern == "*" || pattern == name {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	pp := strings.Split(pattern, ".")
	np := strings.Split(name, ".")
	if len(pp) != len(np) {
		return false
	}
	for i, seg := range pp {
		if seg != "*" && seg != np[i] {
			return false
		}
	}
	return true
}
