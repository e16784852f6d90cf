package quizflow

import (
	"context"
	"sync"
	"time"

	"vocabquiz/internal/models"
)

// Registry keeps one controller per signed-in user
type Registry struct {
	opts Options

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates an empty registry whose controllers share opts
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:        opts,
		controllers: make(map[string]*Controller),
	}
}

// Acquire returns the user's controller, starting a signed-in one if needed.
// ctx supplies request-scoped values such as the access token; a running
// controller picks up the new values. A new controller has applied SignedIn
// by the time Acquire returns unless ctx ends first.
func (r *Registry) Acquire(ctx context.Context, user models.User) *Controller {
	r.mu.Lock()
	if c, ok := r.controllers[user.ID]; ok {
		r.mu.Unlock()
		c.Refresh(ctx)
		return c
	}

	c := NewController(ctx, r.opts)
	err := c.Dispatch(SignedIn{User: user})
	r.controllers[user.ID] = c
	r.mu.Unlock()

	if err == nil {
		_, _ = c.Wait(ctx, func(s State) bool { return s.Authenticated() })
	}
	return c
}

// Lookup returns the user's controller if one is running
func (r *Registry) Lookup(userID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[userID]
	return c, ok
}

// Release tears the user's controller down, typically on sign-out
func (r *Registry) Release(userID string) {
	r.mu.Lock()
	c, ok := r.controllers[userID]
	delete(r.controllers, userID)
	r.mu.Unlock()

	if ok {
		c.Close()
	}
}

// SweepIdle closes controllers with no activity for longer than ttl and
// returns how many were closed
func (r *Registry) SweepIdle(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	var idle []*Controller
	for id, c := range r.controllers {
		if c.LastActive().Before(cutoff) {
			idle = append(idle, c)
			delete(r.controllers, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	return len(idle)
}

// Len reports the number of running controllers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// CloseAll tears down every controller; used on shutdown
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.controllers
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
