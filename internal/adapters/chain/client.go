package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/zeroxblocks/zxb-deploy/internal/domain"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
	"github.com/zeroxblocks/zxb-deploy/internal/usecase"
)

// DefaultTxTimeout bounds the wait for inclusion when the network sets none
const DefaultTxTimeout = 3 * time.Minute

// Config configures the client for one network
type Config struct {
	Network    string
	RPCURL     string
	ChainID    uint64
	PrivateKey string
	TxTimeout  time.Duration
	GasPrice   *big.Int
	GasLimit   uint64
}

// Client implements usecase.ChainClient on go-ethereum. It connects lazily
// so commands that never touch the chain don't need an RPC endpoint.
type Client struct {
	cfg Config
	log *slog.Logger

	mu      sync.Mutex
	eth     *ethclient.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

// NewClient creates a new chain client
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = DefaultTxTimeout
	}
	return &Client{
		cfg: cfg,
		log: log.With("component", "ChainClient", "network", cfg.Network),
	}
}

// Sender returns the address transactions are sent from
func (c *Client) Sender(ctx context.Context) (common.Address, error) {
	key, err := c.signer()
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// Deploy submits a creation transaction and waits for it
func (c *Client) Deploy(ctx context.Context, artifact *models.Artifact, args []models.Value) (*models.Receipt, error) {
	if len(artifact.Bytecode) == 0 {
		return nil, fmt.Errorf("%s has no bytecode (abstract contract or interface?)", artifact.Name)
	}
	goArgs, err := ToGoArgs(artifact.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("constructor of %s: %w", artifact.Name, err)
	}

	auth, err := c.transactor(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Debug("deploying", "artifact", artifact.Name, "args", len(goArgs))
	address, tx, _, err := bind.DeployContract(auth, artifact.ABI, artifact.Bytecode, c.eth, goArgs...)
	if err != nil {
		return nil, sendError("deploy "+artifact.Name, err)
	}

	receipt, err := c.wait(ctx, tx)
	if err != nil {
		return nil, err
	}
	receipt.ContractAddress = address
	return receipt, nil
}

// Transact submits a state-changing call and waits for it
func (c *Client) Transact(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) (*models.Receipt, error) {
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in abi", method)
	}
	goArgs, err := ToGoArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	auth, err := c.transactor(ctx)
	if err != nil {
		return nil, err
	}

	contract := bind.NewBoundContract(to, *contractABI, c.eth, c.eth, c.eth)
	tx, err := contract.Transact(auth, method, goArgs...)
	if err != nil {
		return nil, sendError(method, err)
	}
	return c.wait(ctx, tx)
}

// Call performs a read-only call against the latest block
func (c *Client) Call(ctx context.Context, to common.Address, contractABI *abi.ABI, method string, args []models.Value) ([]models.Value, error) {
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found in abi", method)
	}
	goArgs, err := ToGoArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	var out []interface{}
	contract := bind.NewBoundContract(to, *contractABI, c.eth, c.eth, c.eth)
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, goArgs...); err != nil {
		return nil, fmt.Errorf("call %s: %s", method, revertReason(err))
	}

	values := make([]models.Value, len(out))
	for i, o := range out {
		values[i] = FromGo(o)
	}
	return values, nil
}

// connect dials the RPC endpoint once and checks it serves the expected chain
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		return nil
	}
	if c.cfg.RPCURL == "" {
		return fmt.Errorf("no rpc url configured for network %q", c.cfg.Network)
	}

	client, err := ethclient.DialContext(ctx, c.cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	networkChainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if c.cfg.ChainID != 0 && networkChainID.Uint64() != c.cfg.ChainID {
		client.Close()
		return fmt.Errorf("%w: expected chain %d, rpc serves %d", domain.ErrNetworkMismatch, c.cfg.ChainID, networkChainID.Uint64())
	}

	c.eth = client
	c.chainID = networkChainID
	c.log.Debug("connected", "chainId", networkChainID)
	return nil
}

func (c *Client) signer() (*ecdsa.PrivateKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return c.key, nil
	}
	if c.cfg.PrivateKey == "" {
		return nil, fmt.Errorf("no signer private key configured for network %q", c.cfg.Network)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer private key: %w", err)
	}
	c.key = key
	return key, nil
}

func (c *Client) transactor(ctx context.Context) (*bind.TransactOpts, error) {
	key, err := c.signer()
	if err != nil {
		return nil, err
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	if c.cfg.GasPrice != nil {
		auth.GasPrice = new(big.Int).Set(c.cfg.GasPrice)
	}
	auth.GasLimit = c.cfg.GasLimit
	return auth, nil
}

// wait blocks until the transaction is mined or the timeout passes
func (c *Client) wait(ctx context.Context, tx *types.Transaction) (*models.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	c.log.Debug("waiting for transaction", "tx", tx.Hash())
	receipt, err := bind.WaitMined(waitCtx, c.eth, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, domain.TransactionTimeoutError{TxHash: tx.Hash().Hex(), Timeout: c.cfg.TxTimeout.String()}
		}
		return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, domain.TxRevertedError{TxHash: tx.Hash().Hex(), Reason: c.replayReason(ctx, tx, receipt)}
	}

	return &models.Receipt{
		TxHash:          receipt.TxHash,
		BlockNumber:     receipt.BlockNumber.Uint64(),
		ContractAddress: receipt.ContractAddress,
		GasUsed:         receipt.GasUsed,
	}, nil
}

// replayReason re-executes a failed transaction at its block to recover the
// revert string.
func (c *Client) replayReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	key, err := c.signer()
	if err != nil {
		return "execution reverted"
	}
	msg := ethereum.CallMsg{
		From:     crypto.PubkeyToAddress(key.PublicKey),
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	if _, err := c.eth.CallContract(ctx, msg, receipt.BlockNumber); err != nil {
		return revertReason(err)
	}
	return "execution reverted"
}

// sendError classifies a failure to submit a transaction. Only rejections the
// node attributes to contract execution are reverts; transport, nonce and
// funding errors are passed through.
func sendError(action string, err error) error {
	if isRevert(err) {
		return domain.TxRevertedError{Reason: revertReason(err)}
	}
	return fmt.Errorf("%s: %w", action, err)
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

// revertReason decodes Error(string) revert data when the node returns it
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(hexData); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason
				}
			}
		}
	}
	return err.Error()
}

// Ensure Client implements ChainClient
var _ usecase.ChainClient = (*Client)(nil)
