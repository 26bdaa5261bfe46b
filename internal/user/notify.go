package user

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-dashboard-go/pkg/utilities"
)

// NoticeTTL is how long a success notice stays up unless dismissed.
const NoticeTTL = 3 * time.Second

// Notice is a transient success message. Only one is shown at a time.
type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier holds the current notice and clears it after NoticeTTL.
type Notifier struct {
	clock    clockwork.Clock
	onChange func()

	mu      sync.Mutex
	current *Notice
	timer   clockwork.Timer
}

func newNotifier(clock clockwork.Clock, onChange func()) *Notifier {
	return &Notifier{clock: clock, onChange: onChange}
}

// Show replaces the current notice with msg.
func (n *Notifier) Show(msg string) Notice {
	nt := Notice{ID: utilities.NewKSUID(), Message: msg, CreatedAt: n.clock.Now()}

	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.current = &nt
	n.timer = n.clock.AfterFunc(NoticeTTL, func() { n.expire(nt.ID) })
	n.mu.Unlock()

	n.changed()
	return nt
}

// Dismiss clears the current notice early.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	had := n.current != nil
	n.current = nil
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()
	if had {
		n.changed()
	}
}

// Current returns a copy of the notice on display, or nil.
func (n *Notifier) Current() *Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	c := *n.current
	return &c
}

func (n *Notifier) expire(id string) {
	n.mu.Lock()
	if n.current == nil || n.current.ID != id {
		n.mu.Unlock()
		return
	}
	n.current = nil
	n.timer = nil
	n.mu.Unlock()
	n.changed()
}

func (n *Notifier) changed() {
	if n.onChange != nil {
		n.onChange()
	}
}
