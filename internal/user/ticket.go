package user

import (
	"sort"
	"sync"
	"time"
)

// Action names a kind of mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Ticket marks one in-flight mutation against a user id.
type Ticket struct {
	UserID   int64     `json:"user_id"`
	Action   Action    `json:"action"`
	OpenedAt time.Time `json:"opened_at"`
}

// Tickets holds at most one open ticket per user id.
type Tickets struct {
	mu       sync.Mutex
	open     map[int64]Ticket
	onChange func()
}

func newTickets(onChange func()) *Tickets {
	return &Tickets{open: make(map[int64]Ticket), onChange: onChange}
}

// Open registers a ticket, failing with ErrMutationPending when the id
// already has one.
func (t *Tickets) Open(id int64, action Action, now time.Time) error {
	t.mu.Lock()
	if _, ok := t.open[id]; ok {
		t.mu.Unlock()
		return ErrMutationPending
	}
	t.open[id] = Ticket{UserID: id, Action: action, OpenedAt: now}
	t.mu.Unlock()
	t.changed()
	return nil
}

// Close drops the ticket for id, if any.
func (t *Tickets) Close(id int64) {
	t.mu.Lock()
	_, ok := t.open[id]
	delete(t.open, id)
	t.mu.Unlock()
	if ok {
		t.changed()
	}
}

// Pending returns the open ticket for id.
func (t *Tickets) Pending(id int64) (Ticket, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.open[id]
	return tk, ok
}

// List returns the open tickets ordered by user id.
func (t *Tickets) List() []Ticket {
	t.mu.Lock()
	out := make([]Ticket, 0, len(t.open))
	for _, tk := range t.open {
		out = append(out, tk)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (t *Tickets) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}
