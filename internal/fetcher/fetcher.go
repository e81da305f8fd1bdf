package fetcher

import (
	"context"
	"fmt"
	"math/big"
)

// Snapshot is the raw state of a staking contract at read time.
type Snapshot struct {
	APYRaw         *big.Int
	TotalStakedRaw *big.Int
}

// StakingReader reads staking contract state from the chain.
type StakingReader interface {
	ReadStakingSnapshot(ctx context.Context, contract string) (Snapshot, error)
}

// ChainReadError reports a failed read against a staking contract.
type ChainReadError struct {
	Contract string
	Call     string
	Err      error
}

func (e *ChainReadError) Error() string {
	if e.Call == "" {
		return fmt.Sprintf("chain read %s: %v", e.Contract, e.Err)
	}
	return fmt.Sprintf("chain read %s.%s: %v", e.Contract, e.Call, e.Err)
}

func (e *ChainReadError) Unwrap() error {
	return e.Err
}
