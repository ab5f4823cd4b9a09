package bus

import "testing"

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "graphql_purge", true},
		{"*", "purge.nodes", true},

		{"graphql_purge", "graphql_purge", true},
		{"graphql_purge", "graphql_purge_nodes", false},

		{"purge.*", "purge.nodes", true},
		{"purge.*", "purge.keys", true},
		{"purge.*", "cache.nodes", false},
		{"*.nodes", "purge.nodes", true},

		{"purge.*", "purge.nodes.all", false},
		{"purge", "purge.nodes", false},

		{"", "", true},
		{"a", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_vs_"+tt.name, func(t *testing.T) {
			if got := Match(tt.pattern, tt.name); got != tt.want {
				t.Errorf("Match(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
			}
		})
	}
}
