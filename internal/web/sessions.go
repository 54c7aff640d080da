package web

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Remote is everything a shopper's controllers need from the shop API.
type Remote interface {
	cart.Remote
	catalog.Source
}

// Shopper is the state behind one browser session.
type Shopper struct {
	ID      string
	Board   *notify.Board
	Cart    *cart.Session
	Catalog *catalog.View
	Form    *checkout.Form

	mu       sync.Mutex
	lastSeen time.Time

	// requests using the shopper, guarded by Sessions.mu
	active int
}

func newShopper(id string, remote Remote, log *zap.Logger) *Shopper {
	log = log.With(zap.String("session", id))
	board := notify.NewBoard()
	n := notify.Multi{board, notify.Log{L: log}}
	sess := cart.NewSession(remote, n, log)
	return &Shopper{
		ID:      id,
		Board:   board,
		Cart:    sess,
		Catalog: catalog.NewView(remote, sess, n, log),
		Form:    checkout.NewForm(sess),
	}
}

func (s *Shopper) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Shopper) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Sessions keeps shoppers in memory, keyed by the session cookie.
type Sessions struct {
	remote Remote
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	shoppers map[string]*Shopper
}

func NewSessions(remote Remote, log *zap.Logger) *Sessions {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sessions{remote: remote, log: log, now: time.Now, shoppers: map[string]*Shopper{}}
}

// Get returns the shopper for id. An unknown or empty id starts a new
// session whose catalog and cart are loaded before it is returned.
// The shopper is not swept until the caller hands it back with Release.
func (s *Sessions) Get(ctx context.Context, id string) (*Shopper, bool) {
	s.mu.Lock()
	if sh, ok := s.shoppers[id]; ok && id != "" {
		sh.active++
		sh.touch(s.now())
		s.mu.Unlock()
		return sh, false
	}
	sh := newShopper(uuid.NewString(), s.remote, s.log)
	sh.active++
	sh.touch(s.now())
	s.shoppers[sh.ID] = sh
	s.mu.Unlock()

	// failures surface on the shopper's board
	_ = sh.Catalog.Load(ctx)
	_ = sh.Cart.Refresh(ctx)
	return sh, true
}

// Release ends one request's use of sh and restarts its idle clock.
func (s *Sessions) Release(sh *Shopper) {
	s.mu.Lock()
	sh.active--
	sh.touch(s.now())
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shoppers)
}

// Sweep closes shoppers idle for longer than maxIdle. Shoppers with a
// request in flight are never idle.
func (s *Sessions) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var stale []*Shopper
	s.mu.Lock()
	for id, sh := range s.shoppers {
		if sh.active == 0 && sh.idleSince().Before(cutoff) {
			stale = append(stale, sh)
			delete(s.shoppers, id)
		}
	}
	s.mu.Unlock()
	for _, sh := range stale {
		sh.Cart.Close()
	}
	if len(stale) > 0 {
		s.log.Debug("sessions swept", zap.Int("closed", len(stale)))
	}
	return len(stale)
}

// RunSweeper sweeps every interval until ctx ends.
func (s *Sessions) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep(maxIdle)
		}
	}
}

func (s *Sessions) Close() {
	s.mu.Lock()
	all := s.shoppers
	s.shoppers = map[string]*Shopper{}
	s.mu.Unlock()
	for _, sh := range all {
		sh.Cart.Close()
	}
}
