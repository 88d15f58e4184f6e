// Package mempool maintains the transactions waiting to be mined into a
// block. Transactions are opaque JSON records kept in arrival order and
// keyed by the digest of their compacted content.
package mempool

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// Mempool represents a cache of pending transactions in arrival order.
type Mempool struct {
	mu   sync.RWMutex
	pool []json.RawMessage
	keys map[string]struct{}
}

// New constructs a new empty mempool.
func New() *Mempool {
	return &Mempool{
		keys: make(map[string]struct{}),
	}
}

// Key returns the content digest of the transaction. Formatting differences
// in the JSON don't change the key.
func Key(tx json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, tx); err != nil {
		return digest.SHA256{}.Sum(tx, "")
	}

	return digest.SHA256{}.Sum(buf.Bytes(), "")
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Exists reports if a transaction with the specified key is pending.
func (mp *Mempool) Exists(key string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.keys[key]
	return exists
}

// Upsert adds the transaction to the end of the pool. It returns false
// if the same transaction is already pending.
func (mp *Mempool) Upsert(tx json.RawMessage) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key := Key(tx)
	if _, exists := mp.keys[key]; exists {
		return false
	}

	mp.keys[key] = struct{}{}
	mp.pool = append(mp.pool, tx)

	return true
}

// Delete removes the specified transactions from the pool.
func (mp *Mempool) Delete(txs ...json.RawMessage) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	remove := make(map[string]struct{}, len(txs))
	for _, tx := range txs {
		remove[Key(tx)] = struct{}{}
	}

	pool := mp.pool[:0]
	for _, tx := range mp.pool {
		key := Key(tx)
		if _, exists := remove[key]; exists {
			delete(mp.keys, key)
			continue
		}
		pool = append(pool, tx)
	}

	mp.pool = pool
}

// Replace swaps the content of the pool for the specified transactions.
// Duplicates are kept once.
func (mp *Mempool) Replace(txs []json.RawMessage) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.keys = make(map[string]struct{})

	for _, tx := range txs {
		key := Key(tx)
		if _, exists := mp.keys[key]; exists {
			continue
		}
		mp.keys[key] = struct{}{}
		mp.pool = append(mp.pool, tx)
	}
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.keys = make(map[string]struct{})
}

// PickAll returns a copy of the pending transactions in arrival order.
func (mp *Mempool) PickAll() []json.RawMessage {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]json.RawMessage, len(mp.pool))
	copy(cpy, mp.pool)

	return cpy
}
