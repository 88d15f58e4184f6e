package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// ErrSelfPeer is returned when a node is asked to connect to itself.
var ErrSelfPeer = errors.New("peer is this node")

// BroadcastBlock sends the block to all known peers. Every peer is attempted,
// the returned error holds the peers that failed.
func (s *State) BroadcastBlock(ctx context.Context, block database.Block) error {
	s.evHandler("state: BroadcastBlock: started: blk[%d]", block.Index)
	defer s.evHandler("state: BroadcastBlock: completed: blk[%d]", block.Index)

	return s.transport.Broadcast(ctx, s.KnownPeers(), peer.NewBlockMessage(block))
}

// BroadcastTip sends the last block of the chain to all known peers.
func (s *State) BroadcastTip(ctx context.Context) (database.Block, error) {
	tip, err := s.chain.Tip()
	if err != nil {
		return database.Block{}, err
	}

	return tip, s.BroadcastBlock(ctx, tip)
}

// BroadcastTransaction shares the transaction with all known peers.
func (s *State) BroadcastTransaction(ctx context.Context, tx json.RawMessage) error {
	s.evHandler("state: BroadcastTransaction: started")
	defer s.evHandler("state: BroadcastTransaction: completed")

	return s.transport.Broadcast(ctx, s.KnownPeers(), peer.NewTransactionMessage(tx))
}

// ConnectPeer checks the peer is reachable, adds it to the known peers and
// announces this node to it so blocks flow both ways.
func (s *State) ConnectPeer(ctx context.Context, host string) error {
	s.evHandler("state: ConnectPeer: started: peer[%s]", host)
	defer s.evHandler("state: ConnectPeer: completed: peer[%s]", host)

	pr := peer.New(host)
	if !pr.Valid() {
		return fmt.Errorf("%w: peer %q is not host:port", peer.ErrMalformedMessage, host)
	}

	if pr.Match(s.Host()) {
		return fmt.Errorf("%w: %s", ErrSelfPeer, host)
	}

	if err := s.transport.Dial(ctx, host); err != nil {
		return err
	}

	if s.AddKnownPeer(pr) {
		s.evHandler("state: ConnectPeer: adding peer-node %s", pr)
	}

	return s.transport.Send(ctx, host, peer.NewPeerMessage(s.Host()))
}

// RequestChain asks the peer for its blocks.
func (s *State) RequestChain(ctx context.Context, pr peer.Peer) ([]database.Block, error) {
	s.evHandler("state: RequestChain: started: peer[%s]", pr)
	defer s.evHandler("state: RequestChain: completed: peer[%s]", pr)

	reply, err := s.transport.Request(ctx, pr.Host, peer.NewChainMessage(nil))
	if err != nil {
		return nil, err
	}

	if reply.Type != peer.KindChain {
		return nil, fmt.Errorf("%w: peer %s replied with %q", peer.ErrMalformedMessage, pr, reply.Type)
	}

	blocks := reply.Blocks(s.chain.Hasher())
	s.evHandler("state: RequestChain: peer[%s]: blocks[%d]", pr, len(blocks))

	return blocks, nil
}

// Resync asks every known peer for its chain and replaces the local chain
// with the longest valid one, if it is longer. It returns true if the chain
// was replaced. Peers that can't be reached are reported in the error.
func (s *State) Resync(ctx context.Context) (bool, error) {
	s.evHandler("state: Resync: started")
	defer s.evHandler("state: Resync: completed")

	var candidates [][]database.Block
	var errs []error

	for _, pr := range s.KnownPeers() {
		blocks, err := s.RequestChain(ctx, pr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		candidates = append(candidates, blocks)
	}

	replaced := s.chain.ResolveConflicts(candidates)
	if replaced {
		s.cancelMining()

		tip, _ := s.chain.Tip()
		s.evHandler("state: Resync: chain replaced: length[%d]: tip[%s]", s.chain.Length(), tip.Hash)
	}

	return replaced, errors.Join(errs...)
}

// =============================================================================

// shareTx passes the transaction on to the peers, through the worker when
// one is running.
func (s *State) shareTx(ctx context.Context, tx json.RawMessage) {
	if s.Worker != nil {
		s.Worker.SignalShareTx(tx)
		return
	}

	if err := s.BroadcastTransaction(ctx, tx); err != nil {
		s.evHandler("state: shareTx: WARNING: %s", err)
	}
}

// signalSync starts a resync, through the worker when one is running.
func (s *State) signalSync(ctx context.Context) {
	if s.Worker != nil {
		s.Worker.SignalSync()
		return
	}

	if _, err := s.Resync(ctx); err != nil {
		s.evHandler("state: signalSync: WARNING: %s", err)
	}
}
