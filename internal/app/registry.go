package app

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Giveaway struct {
	MessageID   string
	GuildID     string
	ChannelID   string
	Title       string
	Description string
	StartedBy   string
	Duration    time.Duration
	CreatedAt   time.Time
	// Entrants is in entry order; it never holds the same user twice.
	Entrants []string

	entrantSet map[string]struct{}
	timer      Timer
}

func (g *Giveaway) snapshot() Giveaway {
	c := *g
	c.Entrants = slices.Clone(g.Entrants)
	c.entrantSet = nil
	c.timer = nil
	return c
}

// Registry holds every running giveaway, keyed by announcement message ID.
// Enter and Take serialize on one lock, so an entry either lands before
// the draw or is rejected.
type Registry struct {
	mu        sync.Mutex
	giveaways map[string]*Giveaway
	afterFunc AfterFunc
}

func NewRegistry(afterFunc AfterFunc) *Registry {
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	return &Registry{
		giveaways: make(map[string]*Giveaway),
		afterFunc: afterFunc,
	}
}

// Start registers g and arms its timer. expire runs at most once, after
// Duration, with the giveaway's ID.
func (r *Registry) Start(g Giveaway, expire func(id string)) error {
	id := g.MessageID

	r.mu.Lock()
	if _, ok := r.giveaways[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("giveaway %s is already running", id)
	}
	g.Entrants = nil
	g.entrantSet = make(map[string]struct{})
	r.giveaways[id] = &g
	r.mu.Unlock()

	timer := r.afterFunc(g.Duration, func() { expire(id) })

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.giveaways[id]; ok && entry == &g {
		entry.timer = timer
	}
	return nil
}

// Enter adds userID to the giveaway and returns the updated state.
// Entering twice is a no-op; added reports whether userID is new.
func (r *Registry) Enter(id, userID string) (g Giveaway, added bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.giveaways[id]
	if !ok {
		return Giveaway{}, false, notFound("This giveaway no longer exists.")
	}

	if _, entered := entry.entrantSet[userID]; !entered {
		entry.entrantSet[userID] = struct{}{}
		entry.Entrants = append(entry.Entrants, userID)
		added = true
	}

	return entry.snapshot(), added, nil
}

func (r *Registry) Get(id string) (Giveaway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return Giveaway{}, false
	}
	return g.snapshot(), true
}

// Take removes the giveaway and returns its final state. Only the first
// call for an ID gets ok == true.
func (r *Registry) Take(id string) (Giveaway, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.giveaways[id]
	if !ok {
		return Giveaway{}, false
	}
	delete(r.giveaways, id)
	if g.timer != nil {
		g.timer.Stop()
	}

	return g.snapshot(), true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.giveaways)
}

// Stop cancels every pending timer and empties the registry.
func (r *Registry) Stop() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.giveaways)
	for id, g := range r.giveaways {
		if g.timer != nil {
			g.timer.Stop()
		}
		delete(r.giveaways, id)
	}
	return n
}
