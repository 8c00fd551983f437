package keys

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"keyplane/internal/db"
)

// memStore is an in-memory db.Store. Transaction runs fn against the same
// store, counts begun and rolled back transactions, and restores the key
// and usage tables when fn fails.
type memStore struct {
	mu       sync.Mutex
	tenants  map[string]uuid.UUID // slug -> id
	bindings map[string][]uuid.UUID
	keys     []db.APIKey
	logs     []db.UsageLog

	calls        int
	txBegun      int
	txRolledBack int

	insertErr  error
	listErr    error
	deleteErr  error
	usageErr   error
	bindingErr error
}

func newMemStore() *memStore {
	return &memStore{
		tenants:  map[string]uuid.UUID{},
		bindings: map[string][]uuid.UUID{},
	}
}

func (m *memStore) addTenant(slug string) uuid.UUID {
	id := uuid.New()
	m.tenants[slug] = id
	return id
}

func (m *memStore) bind(userID string, tenant uuid.UUID) {
	m.bindings[userID] = append(m.bindings[userID], tenant)
}

func (m *memStore) touch() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *memStore) ListKeys(_ context.Context, tenantID uuid.UUID) ([]db.APIKey, error) {
	m.touch()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []db.APIKey
	for _, k := range m.keys {
		if k.TenantID == tenantID {
			k.Hash = ""
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) InsertKey(_ context.Context, key *db.APIKey) error {
	m.touch()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, k := range m.keys {
		if k.Hash == key.Hash {
			return errors.New(`duplicate key value violates unique constraint "idx_api_keys_hash"`)
		}
	}
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now()
	}
	m.keys = append(m.keys, *key)
	return nil
}

func (m *memStore) DeleteKey(_ context.Context, tenantID, id uuid.UUID) (int64, error) {
	m.touch()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	kept := m.keys[:0]
	for _, k := range m.keys {
		if k.ID == id && k.TenantID == tenantID {
			n++
			continue
		}
		kept = append(kept, k)
	}
	m.keys = kept
	return n, nil
}

func (m *memStore) FindKeyByHash(_ context.Context, hash string) (*db.APIKey, error) {
	m.touch()
	for _, k := range m.keys {
		if k.Hash == hash {
			k := k
			return &k, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) CountKeys(_ context.Context, tenantID uuid.UUID) (int64, error) {
	m.touch()
	var n int64
	for _, k := range m.keys {
		if tenantID == uuid.Nil || k.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) FirstTenantBinding(_ context.Context, userID string) (uuid.UUID, bool, error) {
	m.touch()
	if m.bindingErr != nil {
		return uuid.Nil, false, m.bindingErr
	}
	b := m.bindings[userID]
	if len(b) == 0 {
		return uuid.Nil, false, nil
	}
	return b[0], true, nil
}

func (m *memStore) TenantIDBySlug(_ context.Context, slug string) (uuid.UUID, bool, error) {
	m.touch()
	id, ok := m.tenants[slug]
	return id, ok, nil
}

func (m *memStore) CountTenants(_ context.Context) (int64, error) {
	m.touch()
	return int64(len(m.tenants)), nil
}

func (m *memStore) UsageSince(_ context.Context, q db.UsageQuery) ([]db.UsageLog, error) {
	m.touch()
	if m.usageErr != nil {
		return nil, m.usageErr
	}
	var out []db.UsageLog
	for _, l := range m.logs {
		if l.CreatedAt.Before(q.Cutoff) {
			continue
		}
		if q.KeyID != uuid.Nil && l.KeyID != q.KeyID {
			continue
		}
		if q.TenantID != uuid.Nil && l.TenantID != q.TenantID {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) InsertUsage(_ context.Context, entry *db.UsageLog) error {
	m.touch()
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx db.Store) error) error {
	m.txBegun++
	keys := append([]db.APIKey(nil), m.keys...)
	logs := append([]db.UsageLog(nil), m.logs...)
	if err := fn(m); err != nil {
		m.keys, m.logs = keys, logs
		m.txRolledBack++
		return err
	}
	return nil
}

var _ db.Store = (*memStore)(nil)
