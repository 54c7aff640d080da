// Package notify surfaces transient success toasts and blocking error
// dialogs. Notifiers are stateless from the caller's point of view; every
// layer that talks to the network reports through one.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// GenericDetail is shown when the server did not say what went wrong.
const GenericDetail = "Please try again later."

// ToastTTL matches how long a success toast stays on screen.
const ToastTTL = 1500 * time.Millisecond

type Notifier interface {
	Success(title string)
	Error(title, detail string)
}

type Log struct {
	L *zap.Logger
}

func (n Log) Success(title string) {
	n.L.Info("notify success", zap.String("title", title))
}

func (n Log) Error(title, detail string) {
	n.L.Warn("notify error", zap.String("title", title), zap.String("detail", detailOrGeneric(detail)))
}

type Multi []Notifier

func (m Multi) Success(title string) {
	for _, n := range m {
		n.Success(title)
	}
}

func (m Multi) Error(title, detail string) {
	for _, n := range m {
		n.Error(title, detail)
	}
}

type Toast struct {
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

type Dialog struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Board keeps the notifications of one shopper until the page shows them.
// Only the latest error dialog is kept; toasts expire after ToastTTL.
type Board struct {
	mu     sync.Mutex
	now    func() time.Time
	toasts []Toast
	dialog *Dialog
}

func NewBoard() *Board {
	return &Board{now: time.Now}
}

func (b *Board) Success(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = append(b.toasts, Toast{Title: title, At: b.now()})
}

func (b *Board) Error(title, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialog = &Dialog{Title: title, Detail: detailOrGeneric(detail)}
}

// Toasts returns the toasts still on screen and drops expired ones.
func (b *Board) Toasts() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	live := b.toasts[:0]
	for _, t := range b.toasts {
		if now.Sub(t.At) < ToastTTL {
			live = append(live, t)
		}
	}
	b.toasts = live
	out := make([]Toast, len(live))
	copy(out, live)
	return out
}

// Dialog returns the pending error dialog, if any.
func (b *Board) Dialog() (Dialog, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dialog == nil {
		return Dialog{}, false
	}
	return *b.dialog, true
}

func (b *Board) Dismiss() {
	b.mu.Lock()
	b.dialog = nil
	b.mu.Unlock()
}

func detailOrGeneric(detail string) string {
	if detail == "" {
		return GenericDetail
	}
	return detail
}
