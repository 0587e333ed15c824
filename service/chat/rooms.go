package chat

import "sync"

type room struct {
	order   []*Client
	members map[*Client]struct{}
}

// Rooms tracks connection-scoped room membership. A room exists while it
// has at least one member.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	byConn map[*Client]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]*room),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// Join adds c to name. Joining twice is a no-op.
func (r *Rooms) Join(c *Client, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[name]
	if rm == nil {
		rm = &room{members: make(map[*Client]struct{})}
		r.rooms[name] = rm
	}
	if _, ok := rm.members[c]; ok {
		return false
	}
	rm.members[c] = struct{}{}
	rm.order = append(rm.order, c)

	set := r.byConn[c]
	if set == nil {
		set = make(map[string]struct{})
		r.byConn[c] = set
	}
	set[name] = struct{}{}
	return true
}

// Leave removes c from name; false when c was not a member.
func (r *Rooms) Leave(c *Client, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(c, name)
}

func (r *Rooms) leaveLocked(c *Client, name string) bool {
	rm := r.rooms[name]
	if rm == nil {
		return false
	}
	if _, ok := rm.members[c]; !ok {
		return false
	}
	delete(rm.members, c)
	for i, m := range rm.order {
		if m == c {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	if len(rm.members) == 0 {
		delete(r.rooms, name)
	}
	if set := r.byConn[c]; set != nil {
		delete(set, name)
		if len(set) == 0 {
			delete(r.byConn, c)
		}
	}
	return true
}

// LeaveAll drops every membership of c and returns the rooms it was in.
func (r *Rooms) LeaveAll(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byConn[c]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	for _, name := range names {
		r.leaveLocked(c, name)
	}
	return names
}

// Members is a snapshot of name in join order.
func (r *Rooms) Members(name string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm := r.rooms[name]
	if rm == nil {
		return nil
	}
	out := make([]*Client, len(rm.order))
	copy(out, rm.order)
	return out
}

func (r *Rooms) IsMember(c *Client, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byConn[c][name]
	return ok
}

// RoomsOf lists the rooms c belongs to.
func (r *Rooms) RoomsOf(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn[c]))
	for name := range r.byConn[c] {
		out = append(out, name)
	}
	return out
}

// Peers returns every client sharing at least one room with c, c included.
func (r *Rooms) Peers(c *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[*Client]struct{}{c: {}}
	out := []*Client{c}
	for name := range r.byConn[c] {
		for _, m := range r.rooms[name].order {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Len is the number of non-empty rooms.
func (r *Rooms) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
