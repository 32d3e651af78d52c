package fetcher

import (
	"errors"
	"testing"
	"time"
)

func newTestPool(t *testing.T, size int, now time.Time) *CredentialPool {
	t.Helper()
	p, err := NewCredentialPool(size)
	if err != nil {
		t.Fatalf("NewCredentialPool: %v", err)
	}
	p.now = func() time.Time { return now }
	return p
}

func TestNewCredentialPool_RejectsEmpty(t *testing.T) {
	if _, err := NewCredentialPool(0); err == nil {
		t.Fatalf("expected error for empty pool")
	}
}

func TestCredentialPool_Select(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	later := now.Add(30 * time.Minute)

	tests := []struct {
		name    string
		setup   func(p *CredentialPool)
		floor   int
		want    int
		wantErr error
	}{
		{
			name:  "unknown quota keeps active",
			setup: func(p *CredentialPool) {},
			floor: 10,
			want:  0,
		},
		{
			name:  "above floor keeps active",
			setup: func(p *CredentialPool) { p.Record(0, 50, later) },
			floor: 10,
			want:  0,
		},
		{
			name: "exhausted active skips to unknown",
			setup: func(p *CredentialPool) {
				p.Record(0, 0, later)
			},
			floor: 10,
			want:  1,
		},
		{
			name: "skips credential below floor",
			setup: func(p *CredentialPool) {
				p.Record(0, 3, later)
				p.Record(1, 5, later)
				p.Record(2, 400, later)
			},
			floor: 100,
			want:  2,
		},
		{
			name: "nobody meets floor keeps positive active",
			setup: func(p *CredentialPool) {
				p.Record(0, 7, later)
				p.Record(1, 2, later)
				p.Record(2, 0, later)
			},
			floor: 10,
			want:  0,
		},
		{
			name: "exhausted active falls back to any positive",
			setup: func(p *CredentialPool) {
				p.Record(0, 0, later)
				p.Record(1, 0, later)
				p.Record(2, 4, later)
			},
			floor: 10,
			want:  2,
		},
		{
			name: "passed reset counts as unknown",
			setup: func(p *CredentialPool) {
				p.Record(0, 0, now.Add(-time.Second))
			},
			floor: 10,
			want:  0,
		},
		{
			name:  "zero floor keeps low active",
			setup: func(p *CredentialPool) { p.Record(0, 1, later) },
			floor: 0,
			want:  0,
		},
		{
			name:  "zero floor still leaves exhausted active",
			setup: func(p *CredentialPool) { p.Record(0, 0, later) },
			floor: 0,
			want:  1,
		},
		{
			name: "all exhausted",
			setup: func(p *CredentialPool) {
				p.MarkExhausted(0, later)
				p.MarkExhausted(1, later)
				p.MarkExhausted(2, later)
			},
			floor:   10,
			want:    0,
			wantErr: ErrPoolExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(t, 3, now)
			tt.setup(p)
			got, err := p.Select(tt.floor)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("Select = %d, want %d", got, tt.want)
			}
			if p.Index() != tt.want {
				t.Fatalf("Index = %d, want %d", p.Index(), tt.want)
			}
		})
	}
}

func TestCredentialPool_SelectScansForwardFromActive(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newTestPool(t, 3, now)
	p.index = 2
	p.Record(2, 0, now.Add(time.Hour))

	got, err := p.Select(10)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != 0 {
		t.Fatalf("Select = %d, want wrap-around to 0", got)
	}
}

func TestCredentialPool_EarliestReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newTestPool(t, 3, now)

	if !p.EarliestReset().IsZero() {
		t.Fatalf("expected zero EarliestReset on fresh pool")
	}

	p.MarkExhausted(0, now.Add(20*time.Minute))
	p.MarkExhausted(1, now.Add(5*time.Minute))
	p.Record(2, 300, now.Add(time.Minute))

	if got, want := p.EarliestReset(), now.Add(5*time.Minute); !got.Equal(want) {
		t.Fatalf("EarliestReset = %v, want %v", got, want)
	}
}

func TestCredentialPool_MarkExhaustedWithoutReset(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newTestPool(t, 1, now)
	p.MarkExhausted(0, time.Time{})

	if got := p.Remaining(0); got != 0 {
		t.Fatalf("Remaining = %d, want 0", got)
	}
	if got, want := p.EarliestReset(), now.Add(time.Minute); !got.Equal(want) {
		t.Fatalf("EarliestReset = %v, want %v", got, want)
	}

	p.Forget(0)
	if got := p.Remaining(0); got != unknownQuota {
		t.Fatalf("Remaining after Forget = %d, want unknown", got)
	}
}

func TestCredentialPool_RecordIgnoresMissingFields(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newTestPool(t, 1, now)
	reset := now.Add(time.Hour)

	p.Record(0, 42, reset)
	p.Record(0, -1, time.Time{})
	p.Record(5, 1, reset)

	if got := p.Remaining(0); got != 42 {
		t.Fatalf("Remaining = %d, want 42", got)
	}
}
