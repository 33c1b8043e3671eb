package workflow

import "time"

// Meta holds the fields of a child item the mutator owns.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) Base() *Meta { return m }

// Update changes the mutable fields of the item with the given id.
type Update[T any] struct {
	ID    string
	Apply func(item *T)
}

// Changes groups the three mutation kinds applied to a child collection.
type Changes[T any] struct {
	Add    []T
	Update []Update[T]
	Remove []string
}

func (c Changes[T]) Empty() bool {
	return len(c.Add) == 0 && len(c.Update) == 0 && len(c.Remove) == 0
}

// Outcome is the mutated collection plus what actually happened to it.
// Unmatched holds update and removal ids that named no surviving item.
type Outcome[T any] struct {
	Items     []T
	Added     int
	Updated   int
	Removed   int
	Unmatched []string
}

// Matched counts the update and removal targets that existed.
func (o Outcome[T]) Matched() int { return o.Updated + o.Removed }

// Mutate applies removals, then updates to surviving items, then additions.
// The input slice is not modified. Updates cannot change an item's id or
// creation time, and an update naming a removed or unknown id is a no-op.
func Mutate[T any, PT interface {
	*T
	Base() *Meta
}](items []T, changes Changes[T], now time.Time, newID func() string) Outcome[T] {
	var out Outcome[T]

	removeSet := make(map[string]struct{}, len(changes.Remove))
	for _, id := range changes.Remove {
		removeSet[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(removeSet))
	survivors := make([]T, 0, len(items)+len(changes.Add))
	for _, item := range items {
		id := PT(&item).Base().ID
		if _, drop := removeSet[id]; drop {
			seen[id] = struct{}{}
			out.Removed++
			continue
		}
		survivors = append(survivors, item)
	}
	for _, id := range changes.Remove {
		if _, ok := seen[id]; !ok {
			out.Unmatched = appendOnce(out.Unmatched, id)
		}
	}

	index := make(map[string]int, len(survivors))
	for i := range survivors {
		index[PT(&survivors[i]).Base().ID] = i
	}
	touched := make(map[string]struct{}, len(changes.Update))
	for _, upd := range changes.Update {
		i, ok := index[upd.ID]
		if !ok || upd.Apply == nil {
			if !ok {
				out.Unmatched = appendOnce(out.Unmatched, upd.ID)
			}
			continue
		}
		target := PT(&survivors[i])
		keep := *target.Base()
		upd.Apply(&survivors[i])
		meta := target.Base()
		meta.ID = keep.ID
		meta.CreatedAt = keep.CreatedAt
		meta.UpdatedAt = now
		touched[upd.ID] = struct{}{}
	}
	out.Updated = len(touched)

	for _, item := range changes.Add {
		meta := PT(&item).Base()
		meta.ID = newID()
		meta.CreatedAt = now
		meta.UpdatedAt = now
		survivors = append(survivors, item)
		out.Added++
	}

	out.Items = survivors
	return out
}

func appendOnce(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
