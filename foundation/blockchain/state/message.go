package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// handleMessage dispatches a message received from a peer. Failures are
// returned to the transport which logs them and drops the message.
func (s *State) handleMessage(ctx context.Context, from string, msg peer.Message) (*peer.Message, error) {
	s.evHandler("state: handleMessage: from[%s]: type[%s]", from, msg.Type)

	switch msg.Type {
	case peer.KindBlock:
		block := database.ToBlock(*msg.Block, s.chain.Hasher())
		return nil, s.ProcessPeerBlock(ctx, block)

	case peer.KindTransaction:
		if !s.chain.AddTransaction(msg.Transaction) {
			s.evHandler("state: handleMessage: transaction: already known")
			return nil, nil
		}
		s.shareTx(ctx, msg.Transaction)
		return nil, nil

	case peer.KindPeer:
		pr := peer.New(msg.Peer)
		if pr.Match(s.Host()) {
			return nil, nil
		}

		// Only addresses accepting connections are kept, every broadcast
		// goes to the known peers.
		if err := s.transport.Dial(ctx, pr.Host); err != nil {
			return nil, fmt.Errorf("announced peer: %w", err)
		}

		if s.AddKnownPeer(pr) {
			s.evHandler("state: handleMessage: peer: adding peer-node %s", pr)
		}
		return nil, nil

	case peer.KindChain:
		reply := peer.NewChainMessage(s.chain.Blocks())
		return &reply, nil
	}

	return nil, fmt.Errorf("%w: %q", peer.ErrUnknownMessageKind, msg.Type)
}

// ProcessPeerBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. Any mining in
// flight is cancelled and the block is passed on to the known peers. A block
// that is ahead of the tip signals this node is behind and needs to sync.
func (s *State) ProcessPeerBlock(ctx context.Context, block database.Block) error {
	s.evHandler("state: ProcessPeerBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.PrevHash, block.Hash, len(block.Transactions()))
	defer s.evHandler("state: ProcessPeerBlock: completed: newBlk[%s]", block.Hash)

	if err := s.chain.Append(block); err != nil {
		if errors.Is(err, database.ErrPrevHashMismatch) {
			tip, tipErr := s.chain.Tip()
			if tipErr == nil && block.Index > tip.Index {
				s.evHandler("state: ProcessPeerBlock: behind peer: blk[%d]: tip[%d]", block.Index, tip.Index)
				s.signalSync(ctx)
			}
		}
		return err
	}

	// If a mining operation is running it is working on a block that can no
	// longer extend the tip.
	s.cancelMining()

	s.blockEvent(block)

	if err := s.BroadcastBlock(ctx, block); err != nil {
		s.evHandler("state: ProcessPeerBlock: broadcast: WARNING: %s", err)
	}

	return nil
}
