package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

const (
	// DeploymentsDir is the default registry root, one sub-directory per network
	DeploymentsDir = "deployments"
	ChainIDFile    = ".chainId"
	LockFile       = ".lock"
)

// FileRegistry stores one JSON document per contract under
// <root>/<network>/<Name>.json, next to a .chainId marker that ties the
// directory to a chain.
type FileRegistry struct {
	dir     string
	network models.NetworkContext
	log     *slog.Logger

	mu      sync.RWMutex
	loaded  bool
	records map[string]*models.ContractRecord
}

// NewFileRegistry creates a registry for the network. Files are read lazily
// on first use.
func NewFileRegistry(root string, network models.NetworkContext, log *slog.Logger) *FileRegistry {
	return &FileRegistry{
		dir:     filepath.Join(root, network.Name),
		network: network,
		log:     log.With("component", "FileRegistry"),
		records: make(map[string]*models.ContractRecord),
	}
}

// Dir returns the directory holding the network's records
func (r *FileRegistry) Dir() string { return r.dir }

// Lookup returns the record for a contract or domain.ErrNotFound
func (r *FileRegistry) Lookup(ctx context.Context, name string) (*models.ContractRecord, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[name]
	if !ok {
		return nil, fmt.Errorf("%s on %s: %w", name, r.network.Name, domain.ErrNotFound)
	}
	return record.Clone(), nil
}

// Record persists the record, replacing any previous one for the name
func (r *FileRegistry) Record(ctx context.Context, record *models.ContractRecord) error {
	if record == nil || record.Name == "" {
		return fmt.Errorf("cannot record a deployment without a contract name")
	}
	if err := r.ensureLoaded(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", r.dir, err)
	}
	if err := r.writeChainID(); err != nil {
		return err
	}
	if err := r.saveFile(record.Name+".json", record); err != nil {
		return fmt.Errorf("failed to save %s: %w", record.Name, err)
	}

	r.records[record.Name] = record.Clone()
	r.log.Debug("recorded deployment", "contract", record.Name, "address", record.Address)
	return nil
}

// List returns every record of the network sorted by name
func (r *FileRegistry) List(ctx context.Context) ([]*models.ContractRecord, error) {
	if err := r.ensureLoaded(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ContractRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, record.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Lock takes the exclusive run lock of the network. The returned function
// releases it.
func (r *FileRegistry) Lock(ctx context.Context) (func(), error) {
	if r.network.Name == "" {
		return nil, fmt.Errorf("no network selected")
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.dir, err)
	}

	path := filepath.Join(r.dir, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		holder, _ := os.ReadFile(path)
		return nil, fmt.Errorf("%w (%s held by pid %s; remove it if no run is active)", domain.ErrRegistryLocked, path, strings.TrimSpace(string(holder)))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.log.Warn("failed to release registry lock", "path", path, "error", err)
		}
	}, nil
}

// ensureLoaded reads the network directory once
func (r *FileRegistry) ensureLoaded() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}
	if r.network.Name == "" {
		return fmt.Errorf("no network selected (use --network)")
	}

	if err := r.checkChainID(); err != nil {
		return err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", r.dir, err)
	}

	var files []string
	bases := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, name)
		bases[strings.TrimSuffix(name, ".json")] = true
	}

	for _, name := range files {
		if sideFile(strings.TrimSuffix(name, ".json"), bases) {
			r.log.Debug("skipping proxy side file", "file", name)
			continue
		}
		var record models.ContractRecord
		if err := r.loadFile(name, &record); err != nil {
			return fmt.Errorf("failed to load %s: %w", filepath.Join(r.dir, name), err)
		}
		if record.Name == "" {
			record.Name = strings.TrimSuffix(name, ".json")
		}
		r.records[record.Name] = &record
	}

	r.loaded = true
	r.log.Debug("loaded registry", "dir", r.dir, "records", len(r.records))
	return nil
}

// sideFile reports whether base is one of the _Implementation / _Proxy
// companions hardhat-deploy writes next to a proxied deployment
func sideFile(base string, bases map[string]bool) bool {
	for _, suffix := range []string{"_Implementation", "_Proxy"} {
		if owner, ok := strings.CutSuffix(base, suffix); ok && bases[owner] {
			return true
		}
	}
	return false
}

// checkChainID refuses to use a directory written for another chain
func (r *FileRegistry) checkChainID() error {
	data, err := os.ReadFile(filepath.Join(r.dir, ChainIDFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read chain id marker: %w", err)
	}

	recorded, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chain id marker in %s: %w", r.dir, err)
	}
	if r.network.ChainID != 0 && recorded != r.network.ChainID {
		return fmt.Errorf("%w: %s holds deployments for chain %d but %s is chain %d",
			domain.ErrNetworkMismatch, r.dir, recorded, r.network.Name, r.network.ChainID)
	}
	return nil
}

func (r *FileRegistry) writeChainID() error {
	path := filepath.Join(r.dir, ChainIDFile)
	if _, err := os.Stat(path); err == nil || r.network.ChainID == 0 {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.FormatUint(r.network.ChainID, 10)), 0644)
}

// loadFile loads a JSON file from the network directory
func (r *FileRegistry) loadFile(filename string, v any) error {
	data, err := os.ReadFile(filepath.Join(r.dir, filename))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// saveFile writes a JSON file through a temp file and an atomic rename
func (r *FileRegistry) saveFile(filename string, v any) error {
	path := filepath.Join(r.dir, filename)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Ensure FileRegistry implements ContractRegistry
var _ usecase.ContractRegistry = (*FileRegistry)(nil)
