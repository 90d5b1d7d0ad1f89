package dashboard

import (
	"sync"
	"time"
)

// Defaults for NewLookupTracker.
const (
	DefaultLookupTTL = 30 * time.Minute
	DefaultMaxForms  = 10000
)

// LookupTracker tags postal-code lookups with a sequence number per form so a slow
// response for an older CEP never overwrites the result for a newer one.
// Forms idle for longer than the TTL are evicted, and the number of tracked forms
// is capped; a lookup for an evicted form is treated as stale.
type LookupTracker struct {
	mu        sync.Mutex
	forms     map[string]lookupEntry
	next      uint64
	ttl       time.Duration
	maxForms  int
	now       func() time.Time
	lastSweep time.Time
}

type lookupEntry struct {
	seq     uint64
	touched time.Time
}

// LookupOption configures a LookupTracker.
type LookupOption func(*LookupTracker)

// WithLookupTTL sets how long an idle form is kept.
func WithLookupTTL(d time.Duration) LookupOption {
	return func(t *LookupTracker) {
		if d > 0 {
			t.ttl = d
		}
	}
}

// WithMaxForms caps the number of tracked forms.
func WithMaxForms(n int) LookupOption {
	return func(t *LookupTracker) {
		if n > 0 {
			t.maxForms = n
		}
	}
}

// NewLookupTracker creates an empty tracker.
func NewLookupTracker(opts ...LookupOption) *LookupTracker {
	t := &LookupTracker{
		forms:    make(map[string]lookupEntry),
		ttl:      DefaultLookupTTL,
		maxForms: DefaultMaxForms,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastSweep = t.now()
	return t
}

// Begin starts a lookup for formID and returns its sequence number.
// Any lookup begun earlier for the same form becomes stale.
func (t *LookupTracker) Begin(formID string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)
	if _, ok := t.forms[formID]; !ok && len(t.forms) >= t.maxForms {
		t.evictOldest()
	}

	t.next++
	t.forms[formID] = lookupEntry{seq: t.next, touched: now}
	return t.next
}

// Invalidate makes every in-flight lookup for formID stale, e.g. when the CEP
// is edited back to an incomplete value.
func (t *LookupTracker) Invalidate(formID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.forms[formID]; ok {
		t.next++
		t.forms[formID] = lookupEntry{seq: t.next, touched: t.now()}
	}
}

// IsLatest reports whether seq is still the newest lookup for formID.
func (t *LookupTracker) IsLatest(formID string, seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.forms[formID]
	return ok && e.seq == seq
}

// Forget drops the state of a form that was submitted or closed.
func (t *LookupTracker) Forget(formID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.forms, formID)
}

// Len returns the number of tracked forms.
func (t *LookupTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.forms)
}

// sweep drops idle forms, at most once per quarter TTL.
func (t *LookupTracker) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < t.ttl/4 {
		return
	}
	t.lastSweep = now
	for id, e := range t.forms {
		if now.Sub(e.touched) > t.ttl {
			delete(t.forms, id)
		}
	}
}

func (t *LookupTracker) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for id, e := range t.forms {
		if !found || e.touched.Before(at) {
			oldest, at, found = id, e.touched, true
		}
	}
	if found {
		delete(t.forms, oldest)
	}
}
