package notetree

import (
	"sort"

	"notetree/internal/domain/models"
)

// writeJournal records what the Coordinator confirmed while a load was in flight.
// The listing that load returns may predate those writes, so they are laid over it
// before it replaces the Node Store. A nil journal records nothing.
type writeJournal struct {
	upserts map[string]models.Node
	removed map[string]bool
}

func newWriteJournal() *writeJournal {
	return &writeJournal{
		upserts: make(map[string]models.Node),
		removed: make(map[string]bool),
	}
}

func (j *writeJournal) upsert(nodes ...models.Node) {
	if j == nil {
		return
	}
	for _, n := range nodes {
		j.upserts[n.ID] = n
		delete(j.removed, n.ID)
	}
}

func (j *writeJournal) remove(ids ...string) {
	if j == nil {
		return
	}
	for _, id := range ids {
		delete(j.upserts, id)
		j.removed[id] = true
	}
}

func (j *writeJournal) len() int {
	if j == nil {
		return 0
	}
	return len(j.upserts) + len(j.removed)
}

// apply returns listed with every recorded write laid over it
func (j *writeJournal) apply(listed []models.Node) []models.Node {
	if j.len() == 0 {
		return listed
	}

	out := make([]models.Node, 0, len(listed)+len(j.upserts))
	for _, n := range listed {
		if _, written := j.upserts[n.ID]; written || j.removed[n.ID] {
			continue
		}
		out = append(out, n)
	}

	ids := make([]string, 0, len(j.upserts))
	for id := range j.upserts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out = append(out, j.upserts[id])
	}
	return out
}
