package ledger

import (
	"fmt"
	"sync"

	apperrors "github.com/jwalitptl/credchain-api/pkg/errors"
	"github.com/jwalitptl/credchain-api/pkg/logger"
	"github.com/jwalitptl/credchain-api/pkg/metrics"
)

// Chain is the append-only, tamper-evident ledger. One logical writer:
// appends take the write lock so two issuances can never compute
// conflicting previous hashes; validation and lookup run concurrently
// under the read lock. It provides tamper evidence, not consensus.
type Chain struct {
	mu      sync.RWMutex
	blocks  []*Block
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewChain creates a chain with its genesis block. The chain is an
// explicitly owned instance; every component that needs it receives a
// reference, nothing reaches into ambient state.
func NewChain(log *logger.Logger, m *metrics.Metrics) (*Chain, error) {
	c := &Chain{logger: log, metrics: m}
	genesis, err := newBlock(0, GenesisPayload{Message: "credential ledger initialized"}, GenesisPrevHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create genesis block: %w", err)
	}
	c.blocks = append(c.blocks, genesis)
	if m != nil {
		m.LedgerHeight.Set(1)
	}
	if log != nil {
		log.Info("ledger initialized", "genesis_hash", genesis.Hash)
	}
	return c, nil
}

// Append creates a block for payload, links it to the current head and
// appends it. The only mutator on the chain.
func (c *Chain) Append(payload Payload) (*Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.blocks) == 0 {
		return nil, apperrors.ErrEmptyChain
	}

	head := c.blocks[len(c.blocks)-1]
	block, err := newBlock(head.Index+1, payload, head.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to build block: %w", err)
	}
	c.blocks = append(c.blocks, block)

	if c.metrics != nil {
		c.metrics.LedgerAppends.WithLabelValues(string(payload.Type())).Inc()
		c.metrics.LedgerHeight.Set(float64(len(c.blocks)))
	}
	if c.logger != nil {
		c.logger.Debug("block appended", "index", block.Index, "type", string(payload.Type()), "hash", block.Hash)
	}
	return block, nil
}

// Latest returns the head block. ErrEmptyChain can only occur if the
// chain was constructed without genesis, which NewChain prevents.
func (c *Chain) Latest() (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return nil, apperrors.ErrEmptyChain
	}
	return c.blocks[len(c.blocks)-1], nil
}

// Validate recomputes every block's hash from its own fields and checks
// each previous-hash link. Returns false on the first mismatch.
func (c *Chain) Validate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.metrics != nil {
		c.metrics.LedgerValidations.Inc()
	}

	for i := 1; i < len(c.blocks); i++ {
		current := c.blocks[i]
		previous := c.blocks[i-1]

		recomputed, err := current.ComputeHash()
		if err != nil || recomputed != current.Hash {
			c.reportTamper(current.Index)
			return false
		}
		if current.PrevHash != previous.Hash {
			c.reportTamper(current.Index)
			return false
		}
	}
	return true
}

func (c *Chain) reportTamper(index int64) {
	if c.metrics != nil {
		c.metrics.LedgerTamperDetected.Inc()
	}
	if c.logger != nil {
		c.logger.Error(apperrors.ErrChainTampered, "chain validation failed", "index", index)
	}
}

// FindByHash returns the block with the given hash, if any. Serves the
// public credential-verification endpoint.
func (c *Chain) FindByHash(hash string) (*Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, b := range c.blocks {
		if b.Hash == hash {
			return b, true
		}
	}
	return nil, false
}

// Export returns the ordered block list for independent auditability.
func (c *Chain) Export() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Len returns the current chain height.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}
