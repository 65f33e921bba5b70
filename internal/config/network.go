package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/config"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// DefaultTxTimeout applies when a network sets no tx_timeout
const DefaultTxTimeout = 3 * time.Minute

// NetworkResolver resolves network names to configurations. deploy.toml
// [networks] entries win; foundry.toml [rpc_endpoints] fill the gaps, with
// the chain id fetched over JSON-RPC and cached.
type NetworkResolver struct {
	projectRoot string
	deploy      *config.DeployConfig
	foundry     *config.FoundryConfig
	cache       *NetworkCache
	httpClient  *http.Client
	mu          sync.RWMutex
}

// NetworkCache caches chain ID lookups
type NetworkCache struct {
	Networks  map[string]uint64 `json:"networks"` // name -> chainID
	RPCs      map[string]uint64 `json:"rpcs"`     // rpcURL -> chainID
	UpdatedAt time.Time         `json:"updatedAt"`
}

// NewNetworkResolver creates a new network resolver
func NewNetworkResolver(projectRoot string, deploy *config.DeployConfig, foundry *config.FoundryConfig) *NetworkResolver {
	if deploy == nil {
		deploy = &config.DeployConfig{}
	}
	if foundry == nil {
		foundry = &config.FoundryConfig{}
	}
	r := &NetworkResolver{
		projectRoot: projectRoot,
		deploy:      deploy,
		foundry:     foundry,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	r.loadCache()
	return r
}

// Names returns every configured network name, sorted
func (r *NetworkResolver) Names() []string {
	names := lo.Uniq(append(lo.Keys(r.deploy.Networks), lo.Keys(r.foundry.RpcEndpoints)...))
	slices.Sort(names)
	return names
}

// Resolve resolves a network name to its configuration
func (r *NetworkResolver) Resolve(name string) (*config.Network, error) {
	nc, inDeploy := r.deploy.Networks[name]
	foundryURL, inFoundry := r.foundry.RpcEndpoints[name]
	if !inDeploy && !inFoundry {
		return nil, fmt.Errorf("network '%s' not found in deploy.toml [networks] or foundry.toml [rpc_endpoints]", name)
	}

	network := &config.Network{
		Name:           name,
		RPCURL:         nc.RPCURL,
		ChainID:        nc.ChainID,
		NativeDecimals: nc.NativeDecimals,
		GasLimit:       nc.GasLimit,
		TxTimeout:      DefaultTxTimeout,
		Source:         DeployFileName,
	}
	if !inDeploy {
		network.Source = FoundryFileName
	}
	if network.RPCURL == "" {
		network.RPCURL = foundryURL
	}
	if network.NativeDecimals == 0 {
		network.NativeDecimals = models.DefaultNativeDecimals
	}

	if nc.TxTimeout != "" {
		d, err := time.ParseDuration(nc.TxTimeout)
		if err != nil {
			return nil, fmt.Errorf("network %s: invalid tx_timeout %q: %w", name, nc.TxTimeout, err)
		}
		network.TxTimeout = d
	}
	if nc.GasPrice != "" {
		price, err := models.ParseInteger(nc.GasPrice, network.NativeDecimals)
		if err != nil {
			return nil, fmt.Errorf("network %s: invalid gas_price %q: %w", name, nc.GasPrice, err)
		}
		network.GasPrice = price
	}

	if network.ChainID == 0 {
		if network.RPCURL == "" {
			return nil, fmt.Errorf("network %s has neither chain_id nor rpc_url", name)
		}
		chainID, err := r.chainID(name, network.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch chain ID for network %s: %w", name, err)
		}
		network.ChainID = chainID
	}

	return network, nil
}

// chainID returns the cached chain id of the network or asks the node
func (r *NetworkResolver) chainID(name, rpcURL string) (uint64, error) {
	r.mu.RLock()
	chainID, cached := r.cache.Networks[name]
	if !cached {
		chainID, cached = r.cache.RPCs[rpcURL]
	}
	r.mu.RUnlock()
	if cached {
		return chainID, nil
	}

	chainID, err := r.fetchChainID(rpcURL)
	if err != nil {
		return 0, err
	}
	r.updateCache(name, rpcURL, chainID)
	return chainID, nil
}

// fetchChainID fetches the chain ID from an RPC endpoint
func (r *NetworkResolver) fetchChainID(rpcURL string) (uint64, error) {
	requestBody := `{"jsonrpc":"2.0","method":"eth_chainId","params":[],"id":1}`

	resp, err := r.httpClient.Post(rpcURL, "application/json", strings.NewReader(requestBody))
	if err != nil {
		return 0, fmt.Errorf("failed to make RPC request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResponse struct {
		Result string `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResponse); err != nil {
		return 0, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if rpcResponse.Error != nil {
		return 0, fmt.Errorf("RPC error: %s", rpcResponse.Error.Message)
	}
	if rpcResponse.Result == "" {
		return 0, fmt.Errorf("empty chain ID response")
	}

	chainID, err := strconv.ParseUint(strings.TrimPrefix(rpcResponse.Result, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse chain ID: %w", err)
	}
	return chainID, nil
}

func (r *NetworkResolver) cachePath() string {
	return filepath.Join(r.projectRoot, "cache", "chainIds.json")
}

// loadCache loads the chain ID cache from disk
func (r *NetworkResolver) loadCache() {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := func() *NetworkCache {
		return &NetworkCache{
			Networks:  make(map[string]uint64),
			RPCs:      make(map[string]uint64),
			UpdatedAt: time.Now(),
		}
	}
	r.cache = fresh()

	data, err := os.ReadFile(r.cachePath())
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, r.cache); err != nil || r.cache.Networks == nil || r.cache.RPCs == nil {
		r.cache = fresh()
	}
}

// updateCache records a lookup. Write errors are ignored since the cache
// only saves round trips.
func (r *NetworkResolver) updateCache(name, rpcURL string, chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Networks[name] = chainID
	r.cache.RPCs[rpcURL] = chainID
	r.cache.UpdatedAt = time.Now()

	_ = r.saveCache()
}

// saveCache saves the cache to disk
func (r *NetworkResolver) saveCache() error {
	if err := os.MkdirAll(filepath.Dir(r.cachePath()), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r.cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.cachePath(), data, 0644)
}
