package buffer

import (
	"github.com/xraph/cachehook/classify"
	"github.com/xraph/cachehook/event"
	"github.com/xraph/cachehook/resolve"
)

// Group collects every observation sharing (object type, action) within one
// window. objects holds at most one snapshot per "{type}:{id}", in first
// insertion order.
type Group struct {
	Key            string
	ObjectType     string
	Action         event.Action
	SourceEndpoint string
	Keys           []classify.Classified

	order   []string
	objects map[string]resolve.Snapshot
}

func newGroup(objectType string, action event.Action, sourceEndpoint string) *Group {
	return &Group{
		Key:            GroupKey(objectType, action),
		ObjectType:     objectType,
		Action:         action,
		SourceEndpoint: sourceEndpoint,
		objects:        make(map[string]resolve.Snapshot),
	}
}

// GroupKey is "{object_type}_{action}".
func GroupKey(objectType string, action event.Action) string {
	return objectType + "_" + string(action)
}

func (g *Group) has(ref string) bool {
	_, ok := g.objects[ref]
	return ok
}

func (g *Group) put(ref string, snap resolve.Snapshot) {
	if g.has(ref) {
		return
	}
	g.objects[ref] = snap
	g.order = append(g.order, ref)
}

// Objects returns the snapshots in first-insertion order. It never returns nil.
func (g *Group) Objects() []resolve.Snapshot {
	out := make([]resolve.Snapshot, 0, len(g.order))
	for _, ref := range g.order {
		out = append(out, g.objects[ref])
	}
	return out
}

// Summary counts keys per category, omitting empty categories.
func (g *Group) Summary() map[string]int {
	out := make(map[string]int)
	for cat, n := range classify.Summarize(g.Keys) {
		out[string(cat)] = n
	}
	return out
}

func (g *Group) clone() Group {
	c := *g
	c.Keys = append([]classify.Classified(nil), g.Keys...)
	c.order = append([]string(nil), g.order...)
	c.objects = make(map[string]resolve.Snapshot, len(g.objects))
	for k, v := range g.objects {
		c.objects[k] = v
	}
	return c
}
