package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisPrevHash is the previous-hash sentinel of the genesis block.
const GenesisPrevHash = "0"

// Block is a single immutable ledger entry. Once appended it is never
// mutated or deleted; Hash is the SHA-256 digest of the block's own
// fields under canonical encoding.
type Block struct {
	Index     int64     `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"-"`
	PrevHash  string    `json:"previous_hash"`
	Hash      string    `json:"hash"`
}

// ComputeHash recomputes the digest from the block's own fields. A
// stored Hash that differs from this value means the block was
// tampered with after the fact.
func (b *Block) ComputeHash() (string, error) {
	body, err := canonicalJSON(map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp.UTC().Format(time.RFC3339Nano),
		"data":          b.Payload.Fields(),
		"previous_hash": b.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode block: %w", err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}

// MarshalJSON flattens the payload into its canonical field map so the
// exported chain is auditable without knowledge of the Go types.
func (b *Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"index":         b.Index,
		"timestamp":     b.Timestamp.UTC().Format(time.RFC3339Nano),
		"data":          b.Payload.Fields(),
		"previous_hash": b.PrevHash,
		"hash":          b.Hash,
	})
}

func newBlock(index int64, payload Payload, prevHash string) (*Block, error) {
	b := &Block{
		Index:     index,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
		PrevHash:  prevHash,
	}
	hash, err := b.ComputeHash()
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	return b, nil
}
