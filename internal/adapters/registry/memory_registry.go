package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// MemoryRegistry keeps records in memory. It backs tests and can seed a
// dry run from another registry without touching disk.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]*models.ContractRecord
	writes  int
}

// NewMemoryRegistry creates a registry pre-populated with records
func NewMemoryRegistry(records ...*models.ContractRecord) *MemoryRegistry {
	m := &MemoryRegistry{records: make(map[string]*models.ContractRecord)}
	for _, record := range records {
		m.records[record.Name] = record.Clone()
	}
	return m
}

func (m *MemoryRegistry) Lookup(ctx context.Context, name string) (*models.ContractRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrNotFound)
	}
	return record.Clone(), nil
}

func (m *MemoryRegistry) Record(ctx context.Context, record *models.ContractRecord) error {
	if record == nil || record.Name == "" {
		return fmt.Errorf("cannot record a deployment without a contract name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.Name] = record.Clone()
	m.writes++
	return nil
}

func (m *MemoryRegistry) List(ctx context.Context) ([]*models.ContractRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ContractRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Writes returns how many times Record was called
func (m *MemoryRegistry) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

var _ usecase.ContractRegistry = (*MemoryRegistry)(nil)
