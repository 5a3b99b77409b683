package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/repo"
)

var _ repo.WebsiteStore = (*Store)(nil)
var _ repo.ValidatorStore = (*Store)(nil)
var _ repo.TickStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Store is the in-memory adapter. One RWMutex guards everything; appends
// and reads from concurrent ingestion requests are safe, and a read is a
// point-in-time snapshot (copied out under the lock).
type Store struct {
	mu         sync.RWMutex
	websites   map[domain.WebsiteID]*domain.Website
	validators map[domain.ValidatorID]*domain.Validator
	ticks      []domain.Tick
	alerts     map[domain.WebsiteID]repo.AlertRecord
}

func New() *Store {
	return &Store{
		websites:   make(map[domain.WebsiteID]*domain.Website),
		validators: make(map[domain.ValidatorID]*domain.Validator),
		ticks:      make([]domain.Tick, 0, 128),
		alerts:     make(map[domain.WebsiteID]repo.AlertRecord),
	}
}

// ---- WebsiteStore ----

func (m *Store) Add(ctx context.Context, w *domain.Website) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.websites {
		if !existing.Disabled && existing.URL == w.URL {
			return repo.ErrDuplicateURL
		}
	}
	if w.ID == "" {
		w.ID = domain.WebsiteID(uuid.NewString())
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	cp := *w
	m.websites[w.ID] = &cp
	return nil
}

func (m *Store) GetByID(ctx context.Context, id domain.WebsiteID) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.websites[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (m *Store) GetActiveByURL(ctx context.Context, url string) (*domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, w := range m.websites {
		if !w.Disabled && w.URL == url {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) ListActive(ctx context.Context) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Website, 0, len(m.websites))
	for _, w := range m.websites {
		if !w.Disabled {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *Store) ListActiveByUser(ctx context.Context, userID string) ([]domain.Website, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Website, 0, len(m.websites))
	for _, w := range m.websites {
		if !w.Disabled && w.UserID == userID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *Store) Disable(ctx context.Context, id domain.WebsiteID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.websites[id]
	if !ok || w.UserID != userID {
		return nil // nothing to do; soft-delete is idempotent
	}
	w.Disabled = true
	return nil
}

// ---- ValidatorStore ----

func (m *Store) Register(ctx context.Context, v *domain.Validator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.validators {
		if existing.PublicKey == v.PublicKey {
			return repo.ErrDuplicateKey
		}
	}
	if v.ID == "" {
		v.ID = domain.ValidatorID(uuid.NewString())
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	cp := *v
	m.validators[v.ID] = &cp
	return nil
}

func (m *Store) FindByPublicKey(ctx context.Context, publicKey string) (*domain.Validator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.validators {
		if v.PublicKey == publicKey {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Store) TouchLastSeen(ctx context.Context, id domain.ValidatorID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.validators[id]; ok {
		v.LastSeenAt = at
	}
	return nil
}

// ---- TickStore ----

func (m *Store) Append(ctx context.Context, t *domain.Tick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = domain.TickID(uuid.NewString())
	}
	m.ticks = append(m.ticks, *t)
	return nil
}

func (m *Store) ListByWebsite(ctx context.Context, id domain.WebsiteID) ([]domain.Tick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Tick
	for _, t := range m.ticks {
		if t.WebsiteID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Store) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.ticks[:0]
	var n int64
	for _, t := range m.ticks {
		if t.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.ticks = kept
	return n, nil
}

// ---- AlertStore ----

func (m *Store) Get(ctx context.Context, id domain.WebsiteID) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

func (m *Store) Set(ctx context.Context, id domain.WebsiteID, status domain.TickStatus, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	m.alerts[id] = repo.AlertRecord{WebsiteID: id, LastStatus: status, LastSentAt: ts}
	return nil
}
