package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
)

const (
	callFixedAPY          = "fixedAPY"
	callTotalAmountStaked = "totalAmountStaked"

	stakingABIJSON = `[
{"inputs":[],"name":"fixedAPY","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"totalAmountStaked","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`
)

var stakingABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(stakingABIJSON))
	if err != nil {
		panic("failed to parse staking ABI: " + err.Error())
	}
	stakingABI = parsed
}

// ContractCaller is the subset of ethclient.Client used for reads.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthereumOptions parameterise the on-chain reader.
type EthereumOptions struct {
	RPCURL  string
	Timeout time.Duration
}

// Ethereum reads staking contracts over JSON-RPC.
type Ethereum struct {
	opts      EthereumOptions
	logger    zerolog.Logger
	caller    ContractCaller
	closer    func()
	clientMux sync.Mutex
}

// NewEthereum builds a reader that dials the RPC endpoint lazily.
func NewEthereum(opts EthereumOptions, logger zerolog.Logger) *Ethereum {
	return &Ethereum{opts: opts, logger: logger.With().Str("component", "chain_reader").Logger()}
}

// NewEthereumWithCaller builds a reader around an existing caller.
func NewEthereumWithCaller(caller ContractCaller, opts EthereumOptions, logger zerolog.Logger) *Ethereum {
	e := NewEthereum(opts, logger)
	e.caller = caller
	return e
}

// ReadStakingSnapshot calls fixedAPY and totalAmountStaked on the contract.
func (e *Ethereum) ReadStakingSnapshot(ctx context.Context, contract string) (Snapshot, error) {
	if !common.IsHexAddress(contract) {
		return Snapshot{}, &ChainReadError{Contract: contract, Err: errors.New("malformed contract address")}
	}

	timeout := e.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	caller, err := e.getCaller(ctx)
	if err != nil {
		return Snapshot{}, &ChainReadError{Contract: contract, Err: err}
	}

	addr := common.HexToAddress(contract)

	apy, err := e.callUint(ctx, caller, addr, callFixedAPY)
	if err != nil {
		return Snapshot{}, &ChainReadError{Contract: contract, Call: callFixedAPY, Err: err}
	}

	staked, err := e.callUint(ctx, caller, addr, callTotalAmountStaked)
	if err != nil {
		return Snapshot{}, &ChainReadError{Contract: contract, Call: callTotalAmountStaked, Err: err}
	}

	e.logger.Debug().Str("contract", addr.Hex()).
		Str("apy_raw", apy.String()).
		Str("total_staked_raw", staked.String()).
		Msg("staking snapshot read")

	return Snapshot{APYRaw: apy, TotalStakedRaw: staked}, nil
}

func (e *Ethereum) callUint(ctx context.Context, caller ContractCaller, addr common.Address, method string) (*big.Int, error) {
	payload, err := stakingABI.Pack(method)
	if err != nil {
		return nil, err
	}

	res, err := caller.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, errors.New("empty response, contract missing or call reverted")
	}

	outputs, err := stakingABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("unexpected %s response", method)
	}

	switch v := outputs[0].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	default:
		return nil, fmt.Errorf("unexpected %s output type %T", method, outputs[0])
	}
}

func (e *Ethereum) getCaller(ctx context.Context) (ContractCaller, error) {
	e.clientMux.Lock()
	defer e.clientMux.Unlock()

	if e.caller != nil {
		return e.caller, nil
	}
	if e.opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}

	client, err := ethclient.DialContext(ctx, e.opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	e.caller = client
	e.closer = client.Close
	return client, nil
}

// Close releases the RPC connection if one was dialled.
func (e *Ethereum) Close() {
	e.clientMux.Lock()
	defer e.clientMux.Unlock()
	if e.closer != nil {
		e.closer()
		e.closer = nil
		e.caller = nil
	}
}

var _ StakingReader = (*Ethereum)(nil)
