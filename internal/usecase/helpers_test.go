package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zeroxblocks/zxb-deploy/internal/adapters/plan"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

const (
	tokenABI = `[
		{"type":"constructor","inputs":[{"name":"supply","type":"uint256"}]},
		{"type":"function","name":"rewardManager","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"setRewardManager","stateMutability":"nonpayable","inputs":[{"name":"manager","type":"address"}],"outputs":[]}
	]`
	managerABI = `[
		{"type":"constructor","inputs":[{"name":"initialToken","type":"address"}]},
		{"type":"function","name":"initialize","stateMutability":"nonpayable","inputs":[{"name":"price","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
		{"type":"function","name":"setToken","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"}],"outputs":[]}
	]`
	proxyABI = `[
		{"type":"constructor","inputs":[{"name":"_logic","type":"address"},{"name":"admin_","type":"address"},{"name":"_data","type":"bytes"}]}
	]`
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	fuji     = models.NewNetworkContext("fuji", 43113, 18, map[string]common.Address{"deployer": deployer})
	avax     = models.NewNetworkContext("avax", 43114, 18, map[string]common.Address{"deployer": deployer})
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeArtifacts serves compiled contracts from ABI strings
type fakeArtifacts struct {
	artifacts map[string]*models.Artifact
}

func newFakeArtifacts(t *testing.T) *fakeArtifacts {
	t.Helper()
	fa := &fakeArtifacts{artifacts: map[string]*models.Artifact{}}
	for name, raw := range map[string]string{
		"Token":                     tokenABI,
		"RewardManager":             managerABI,
		models.DefaultProxyArtifact: proxyABI,
	} {
		parsed, err := abi.JSON(strings.NewReader(raw))
		require.NoError(t, err)
		fa.artifacts[name] = &models.Artifact{
			Name:     name,
			Path:     "out/" + name + ".sol/" + name + ".json",
			ABI:      parsed,
			RawABI:   []byte(raw),
			Bytecode: []byte{0x60, 0x80, 0x60, 0x40},
		}
	}
	return fa
}

func (f *fakeArtifacts) Get(ctx context.Context, name string) (*models.Artifact, error) {
	a, ok := f.artifacts[name]
	if !ok {
		return nil, domain.ArtifactNotFoundError{Name: name}
	}
	return a, nil
}

func (f *fakeArtifacts) Names(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.artifacts))
	for name := range f.artifacts {
		names = append(names, name)
	}
	return names, nil
}

// fakeChain is an in-memory chain. Contracts get sequential addresses, a
// one-argument setX call stores its argument under the getter x, and
// constructor arguments can seed getters through ctorState.
type fakeChain struct {
	mu sync.Mutex

	nonce     int64
	state     map[common.Address]map[string]models.Value
	ctorState map[string][]string

	failDeploy map[string]error
	failTx     map[string]error

	deployed []string
	sent     []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		state:      map[common.Address]map[string]models.Value{},
		ctorState:  map[string][]string{},
		failDeploy: map[string]error{},
		failTx:     map[string]error{},
	}
}

func (c *fakeChain) Sender(ctx context.Context) (common.Address, error) {
	return deployer, nil
}

func (c *fakeChain) Deploy(ctx context.Context, artifact *models.Artifact, args []models.Value) (*models.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failDeploy[artifact.Name]; err != nil {
		return nil, err
	}
	c.nonce++
	addr := common.BigToAddress(big.NewInt(0x1000 + c.nonce))
	c.state[addr] = map[string]models.Value{}
	for i, getter := range c.ctorState[artifact.Name] {
		if i < len(args) && getter != "" {
			c.state[addr][getter] = args[i]
		}
	}
	c.deployed = append(c.deployed, artifact.Name)
	return &models.Receipt{
		TxHash:          common.BigToHash(big.NewInt(c.nonce)),
		BlockNumber:     uint64(c.nonce),
		ContractAddress: addr,
	}, nil
}

func (c *fakeChain) Transact(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) (*models.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.failTx[method]; err != nil {
		return nil, err
	}
	c.nonce++
	c.sent = append(c.sent, method)
	if field, ok := strings.CutPrefix(method, "set"); ok && len(args) == 1 && field != "" {
		if c.state[to] == nil {
			c.state[to] = map[string]models.Value{}
		}
		c.state[to][strings.ToLower(field[:1])+field[1:]] = args[0]
	}
	return &models.Receipt{TxHash: common.BigToHash(big.NewInt(c.nonce)), BlockNumber: uint64(c.nonce)}, nil
}

func (c *fakeChain) Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) ([]models.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := contractABI.Methods[method]; !ok {
		return nil, fmt.Errorf("no method %s", method)
	}
	if v, ok := c.state[to][method]; ok {
		return []models.Value{v}, nil
	}
	return []models.Value{models.AddressValue(common.Address{})}, nil
}

// set writes a getter value directly, as if another party had called it
func (c *fakeChain) set(addr common.Address, getter string, v models.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state[addr] == nil {
		c.state[addr] = map[string]models.Value{}
	}
	c.state[addr][getter] = v
}

func (c *fakeChain) transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.deployed) + len(c.sent)
}

var _ usecase.ChainClient = (*fakeChain)(nil)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) Sender(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockChainClient) Deploy(ctx context.Context, artifact *models.Artifact, params []models.Value) (*models.Receipt, error) {
	args := m.Called(ctx, artifact, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *MockChainClient) Transact(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, params []models.Value) (*models.Receipt, error) {
	args := m.Called(ctx, to, contractABI, method, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Receipt), args.Error(1)
}

func (m *MockChainClient) Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, params []models.Value) ([]models.Value, error) {
	args := m.Called(ctx, to, contractABI, method, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Value), args.Error(1)
}

// staticPlan serves an already parsed plan
type staticPlan struct {
	plan *models.Plan
}

func (s staticPlan) Load(ctx context.Context) (*models.Plan, error) {
	return s.plan, nil
}

func mustPlan(t *testing.T, doc string) *models.Plan {
	t.Helper()
	p, err := plan.Parse([]byte(doc), "test.yaml")
	require.NoError(t, err)
	return p
}

// mapEnv is an EnvironmentSource over a map
type mapEnv map[string]string

func (e mapEnv) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok && v != ""
}

// recordingSink keeps every progress event
type recordingSink struct {
	mu     sync.Mutex
	events []usecase.ProgressEvent
}

func (s *recordingSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Info(string)  {}
func (s *recordingSink) Error(string) {}

func (s *recordingSink) stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Stage
	}
	return out
}

func outcomes(result *usecase.MigrationResult) []models.Outcome {
	out := make([]models.Outcome, len(result.Results))
	for i, r := range result.Results {
		out[i] = r.Outcome
	}
	return out
}
