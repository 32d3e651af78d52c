package fetcher

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPoolExhausted means every credential is known to be at zero quota before
// its reset time.
var ErrPoolExhausted = errors.New("all credentials exhausted")

const unknownQuota = -1

// CredentialPool tracks the last-known quota of each credential and selects
// which one the next call should use. Index always points at a credential with
// unknown or positive quota unless every credential is exhausted.
type CredentialPool struct {
	mu        sync.Mutex
	index     int
	remaining []int
	reset     []time.Time
	now       func() time.Time
}

func NewCredentialPool(size int) (*CredentialPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("credential pool: size must be > 0 (got %d)", size)
	}
	p := &CredentialPool{
		remaining: make([]int, size),
		reset:     make([]time.Time, size),
		now:       time.Now,
	}
	for i := range p.remaining {
		p.remaining[i] = unknownQuota
	}
	return p, nil
}

func (p *CredentialPool) Size() int {
	return len(p.remaining)
}

// Index returns the active credential.
func (p *CredentialPool) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Remaining returns the effective remaining quota of credential i, or -1 when
// unknown (never observed, or its reset time has passed).
func (p *CredentialPool) Remaining(i int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effectiveLocked(i)
}

// Record stores quota metadata observed on a response made with credential i.
// A negative remaining or zero reset leaves that field untouched.
func (p *CredentialPool) Record(i, remaining int, reset time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.remaining) {
		return
	}
	if remaining >= 0 {
		p.remaining[i] = remaining
	}
	if !reset.IsZero() {
		p.reset[i] = reset
	}
}

// MarkExhausted records that credential i was refused for quota. Without a
// reported reset the credential is parked for a minute.
func (p *CredentialPool) MarkExhausted(i int, reset time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.remaining) {
		return
	}
	p.remaining[i] = 0
	if reset.IsZero() || !reset.After(p.now()) {
		reset = p.now().Add(time.Minute)
	}
	p.reset[i] = reset
}

// Forget drops what is known about credential i, so the next call probes it.
func (p *CredentialPool) Forget(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.remaining) {
		return
	}
	p.remaining[i] = unknownQuota
	p.reset[i] = time.Time{}
}

// Select returns the credential to use for a call whose quota floor is floor.
//
// The active credential is kept while its quota is unknown or >= floor.
// Otherwise the pool scans forward round-robin (index+1 mod n) for a
// credential with unknown or >= floor quota. If none qualifies it keeps the
// active one while it still has positive quota, then falls back to any other
// credential with positive quota. ErrPoolExhausted is returned when all are
// at zero. A floor below 1 only rotates away from an exhausted credential.
func (p *CredentialPool) Select(floor int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if floor < 1 {
		floor = 1
	}

	n := len(p.remaining)
	cur := p.index
	rem := p.effectiveLocked(cur)
	if rem == unknownQuota || rem >= floor {
		return cur, nil
	}

	for step := 1; step < n; step++ {
		i := (cur + step) % n
		r := p.effectiveLocked(i)
		if r == unknownQuota || r >= floor {
			p.index = i
			return i, nil
		}
	}

	if rem > 0 {
		return cur, nil
	}

	for step := 1; step < n; step++ {
		i := (cur + step) % n
		if p.effectiveLocked(i) > 0 {
			p.index = i
			return i, nil
		}
	}

	return cur, ErrPoolExhausted
}

// EarliestReset returns the soonest reset time among exhausted credentials.
func (p *CredentialPool) EarliestReset() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	var earliest time.Time
	for i := range p.remaining {
		if p.remaining[i] != 0 || p.reset[i].IsZero() {
			continue
		}
		if earliest.IsZero() || p.reset[i].Before(earliest) {
			earliest = p.reset[i]
		}
	}
	return earliest
}

func (p *CredentialPool) effectiveLocked(i int) int {
	r := p.remaining[i]
	if r == unknownQuota {
		return unknownQuota
	}
	if !p.reset[i].IsZero() && !p.now().Before(p.reset[i]) {
		return unknownQuota
	}
	return r
}
