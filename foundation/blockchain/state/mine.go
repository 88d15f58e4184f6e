package state

import (
	"context"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// MineAndBroadcast mines the pending transactions into a new block and sends
// it to the known peers. The reward is credited to the specified address or
// to the node's beneficiary when empty. The operation is cancelled when a
// block from a peer is accepted first.
func (s *State) MineAndBroadcast(ctx context.Context, rewardAddress string) (database.Block, error) {
	s.evHandler("state: MineAndBroadcast: MINING: started")
	defer s.evHandler("state: MineAndBroadcast: MINING: completed")

	if rewardAddress == "" {
		rewardAddress = s.beneficiary
	}

	miningCtx, done := s.startMining(ctx)
	defer done()

	block, err := s.chain.MinePending(miningCtx, rewardAddress, s.evHandler)
	if err != nil {
		return database.Block{}, err
	}

	s.blockEvent(block)

	// The block is part of our chain, a peer that can't be reached will
	// catch up when it syncs.
	if err := s.BroadcastBlock(ctx, block); err != nil {
		s.evHandler("state: MineAndBroadcast: broadcast: WARNING: %s", err)
	}

	return block, nil
}

// SignalMining asks the worker to mine the pending transactions in the
// background.
func (s *State) SignalMining() bool {
	if s.Worker == nil {
		return false
	}

	s.Worker.SignalStartMining()
	return true
}
