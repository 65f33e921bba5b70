package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// ArtifactRepository indexes compiled contract artifacts. Foundry output
// (out/<File>.sol/<Name>.json) and Hardhat output
// (artifacts/contracts/<File>.sol/<Name>.json) are both understood.
type ArtifactRepository struct {
	dirs []string
	log  *slog.Logger

	mu      sync.RWMutex
	indexed bool
	paths   map[string]string
	cache   map[string]*models.Artifact
}

// NewArtifactRepository creates a repository over the given output directories
func NewArtifactRepository(dirs []string, log *slog.Logger) *ArtifactRepository {
	return &ArtifactRepository{
		dirs:  dirs,
		log:   log.With("component", "ArtifactRepository"),
		paths: make(map[string]string),
		cache: make(map[string]*models.Artifact),
	}
}

// Get returns the parsed artifact for a contract name
func (r *ArtifactRepository) Get(ctx context.Context, name string) (*models.Artifact, error) {
	if err := r.index(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	if artifact, ok := r.cache[name]; ok {
		r.mu.RUnlock()
		return artifact, nil
	}
	path, ok := r.paths[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ArtifactNotFoundError{Name: name}
	}

	artifact, err := parseArtifact(name, path)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[name] = artifact
	r.mu.Unlock()
	return artifact, nil
}

// Names lists every indexed contract name
func (r *ArtifactRepository) Names(ctx context.Context) ([]string, error) {
	if err := r.index(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.paths)
	sort.Strings(names)
	return names, nil
}

// Refresh drops the index so the next lookup re-reads the output directories
func (r *ArtifactRepository) Refresh() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed = false
	r.paths = make(map[string]string)
	r.cache = make(map[string]*models.Artifact)
}

func (r *ArtifactRepository) index() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexed {
		return nil
	}

	for _, dir := range r.dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if info.Name() == "build-info" {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
				return nil
			}

			name := strings.TrimSuffix(filepath.Base(path), ".json")
			if existing, ok := r.paths[name]; ok && existing != path {
				// First directory wins; later duplicates are usually test or
				// script artifacts sharing a name.
				r.log.Debug("duplicate artifact name", "name", name, "kept", existing, "ignored", path)
				return nil
			}
			r.paths[name] = path
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to index artifacts in %s: %w", dir, err)
		}
	}

	r.indexed = true
	r.log.Debug("indexed artifacts", "count", len(r.paths))
	return nil
}

// rawArtifact covers both the Foundry and Hardhat layouts. Foundry nests the
// creation code under bytecode.object, Hardhat stores it as a plain string.
type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

func parseArtifact(name, path string) (*models.Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var raw rawArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	if len(raw.ABI) == 0 {
		return nil, fmt.Errorf("artifact %s has no abi", path)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("invalid abi in %s: %w", path, err)
	}

	code, err := decodeBytecode(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode in %s: %w", path, err)
	}

	return &models.Artifact{
		Name:     name,
		Path:     path,
		ABI:      parsed,
		RawABI:   raw.ABI,
		Bytecode: code,
	}, nil
}

func decodeBytecode(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		var nested struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, err
		}
		hex = nested.Object
	}

	if hex == "" || hex == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(hex, "0x") {
		hex = "0x" + hex
	}
	if strings.Contains(hex, "__") {
		return nil, fmt.Errorf("bytecode has unlinked library placeholders")
	}
	return hexutil.Decode(hex)
}

var _ usecase.ArtifactRepository = (*ArtifactRepository)(nil)
