// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/powchain/business/sys/validate"
	v1 "github.com/ardanlabs/powchain/business/web/v1"
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client. The prefix
// query parameter filters the events, "event:" only streams the blocks
// added to the chain.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID, r.URL.Query().Get("prefix"))
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Chain returns every block of the chain starting with the genesis block.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.Blocks()

	resp := chain{
		Length: len(blocks),
		Blocks: make([]database.BlockData, len(blocks)),
	}
	for i, block := range blocks {
		resp.Blocks[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Tip returns the last block of the chain.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip, err := h.State.Tip()
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, database.NewBlockData(tip), http.StatusOK)
}

// Valid reports if the chain passes validation, and why not when it fails.
func (h Handlers) Valid(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := validity{
		Valid:  true,
		Length: h.State.Length(),
	}

	if err := h.State.Validate(); err != nil {
		resp.Valid = false
		resp.Reason = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BroadcastTip sends the last block of the chain to the known peers. Peers
// that can't be reached are reported but don't fail the request.
func (h Handlers) BroadcastTip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tip, err := h.State.BroadcastTip(ctx)

	resp := broadcast{
		Tip:   database.NewBlockData(tip),
		Peers: len(h.State.KnownPeers()),
	}
	if err != nil {
		resp.Failed = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Sync asks the known peers for their chain and adopts the longest valid one.
func (h Handlers) Sync(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	replaced, err := h.State.Resync(ctx)

	resp := resync{
		Replaced: replaced,
		Length:   h.State.Length(),
	}
	if err != nil {
		resp.Failed = err.Error()
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Redact rewrites the data of a block using the trapdoor of the chameleon
// hash. The hash of the block is unchanged.
func (h Handlers) Redact(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var rd Redaction
	if err := web.Decode(r, &rd); err != nil {
		return decodeError(err)
	}

	block, err := h.State.Redact(rd.Index, rd.Data, rd.TrapdoorKey)
	if err != nil {
		return v1.NewChainError(err)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// Pending returns the transactions waiting to be mined.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txs := h.State.Pending()

	resp := pending{
		Count:        len(txs),
		Transactions: txs,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction adds a new transaction to the pending pool and shares it
// with the known peers.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var nt NewTransaction
	if err := web.Decode(r, &nt); err != nil {
		return decodeError(err)
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "tx", string(nt.Transaction))

	added, err := h.State.SubmitTransaction(ctx, nt.Transaction)
	if err != nil {
		if errors.Is(err, state.ErrInvalidTransaction) {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		return err
	}

	resp := submitted{
		Added:  added,
		Status: "transaction added to pending pool",
	}
	if !added {
		resp.Status = "transaction already known"
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine mines the pending transactions into a new block and broadcasts it.
// The request blocks until the block is mined.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var mr MineRequest
	if err := web.Decode(r, &mr); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}

	block, err := h.State.MineAndBroadcast(ctx, mr.RewardAddress)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNoWorkAvailable):
			return web.Respond(ctx, w, nil, http.StatusNoContent)

		case errors.Is(err, context.Canceled):
			return v1.NewRequestError(fmt.Errorf("mining cancelled: %w", err), http.StatusConflict)
		}
		return v1.NewChainError(err)
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// SignalMining asks the worker to mine the pending transactions in the
// background.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if !h.State.SignalMining() {
		return v1.NewRequestError(errors.New("no mining worker running"), http.StatusServiceUnavailable)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signalled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Peers returns the set of known peers.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	known := h.State.KnownPeers()

	resp := peerList{
		Host:  h.State.Host(),
		Peers: make([]string, len(known)),
	}
	for i, pr := range known {
		resp.Peers[i] = pr.Host
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ConnectPeer connects the node to a new peer.
func (h Handlers) ConnectPeer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var np NewPeer
	if err := web.Decode(r, &np); err != nil {
		return decodeError(err)
	}

	if err := h.State.ConnectPeer(ctx, np.Host); err != nil {
		if errors.Is(err, state.ErrSelfPeer) {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		return v1.NewChainError(err)
	}

	return h.Peers(ctx, w, r)
}

// decodeError keeps the field errors for the Errors middleware and marks the
// rest as a bad request.
func decodeError(err error) error {
	if errors.Is(err, io.EOF) {
		return v1.NewRequestError(errors.New("missing request body"), http.StatusBadRequest)
	}

	if validate.IsFieldErrors(err) {
		return err
	}

	return v1.NewRequestError(err, http.StatusBadRequest)
}
