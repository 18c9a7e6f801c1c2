// Package rooms tracks which connections belong to which team rooms.
//
// A Registry is not safe for concurrent use; the relay hub owns it and is the
// only goroutine touching it.
package rooms

import "sort"

type Policy int

const (
	// Accumulate keeps earlier memberships when a connection joins another
	// room.
	Accumulate Policy = iota
	// Exclusive removes a connection from every other room before it joins.
	Exclusive
)

func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "accumulate":
		return Accumulate, true
	case "exclusive":
		return Exclusive, true
	}
	return Accumulate, false
}

func (p Policy) String() string {
	if p == Exclusive {
		return "exclusive"
	}
	return "accumulate"
}

type Registry struct {
	policy  Policy
	members map[string]map[string]bool // room -> connection ids
	joined  map[string]map[string]bool // connection id -> rooms
}

func NewRegistry(policy Policy) *Registry {
	return &Registry{
		policy:  policy,
		members: map[string]map[string]bool{},
		joined:  map[string]map[string]bool{},
	}
}

// Join adds id to room and returns the room's member count afterwards.
func (r *Registry) Join(id, room string) int {
	if r.policy == Exclusive {
		for other := range r.joined[id] {
			if other != room {
				r.remove(id, other)
			}
		}
	}
	set, ok := r.members[room]
	if !ok {
		set = map[string]bool{}
		r.members[room] = set
	}
	set[id] = true

	rooms, ok := r.joined[id]
	if !ok {
		rooms = map[string]bool{}
		r.joined[id] = rooms
	}
	rooms[room] = true
	return len(set)
}

// Leave drops id from every room it joined and returns those rooms.
func (r *Registry) Leave(id string) []string {
	left := r.RoomsOf(id)
	for _, room := range left {
		r.remove(id, room)
	}
	delete(r.joined, id)
	return left
}

func (r *Registry) remove(id, room string) {
	if set, ok := r.members[room]; ok {
		delete(set, id)
		// rooms only exist while they have members
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	if rooms, ok := r.joined[id]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.joined, id)
		}
	}
}

func (r *Registry) Count(room string) int {
	return len(r.members[room])
}

// Members returns the ids in room, sorted.
func (r *Registry) Members(room string) []string {
	return sortedKeys(r.members[room])
}

// RoomsOf returns the rooms id belongs to, sorted.
func (r *Registry) RoomsOf(id string) []string {
	return sortedKeys(r.joined[id])
}

func (r *Registry) Rooms() []string {
	return sortedKeys(r.members)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
