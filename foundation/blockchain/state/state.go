// Package state is the core API for the blockchain node and implements the
// rules for mining, accepting blocks from peers and resolving conflicts.
package state

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
)

// EventHandler defines a function that is called when events
// occur in the processing of blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, transaction sharing and syncing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalShareTx(tx json.RawMessage)
	SignalSync()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Host        string
	Beneficiary string
	Genesis     genesis.Genesis
	Hasher      digest.Hasher
	KnownPeers  *peer.PeerSet
	Transport   peer.TransportConfig
	EvHandler   EventHandler
}

// State manages the blockchain and the node's view of the network.
type State struct {
	host        string
	beneficiary string
	evHandler   EventHandler

	chain      *database.Chain
	knownPeers *peer.PeerSet
	transport  *peer.Transport

	mu        sync.Mutex
	listener  net.Listener
	serveDone chan struct{}
	stopServe context.CancelFunc
	miningID  uint64
	mining    map[uint64]context.CancelFunc

	Worker Worker
}

// New constructs a node holding only the genesis block.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	chain, err := database.NewChain(cfg.Genesis, cfg.Hasher)
	if err != nil {
		return nil, err
	}

	knownPeers := cfg.KnownPeers
	if knownPeers == nil {
		knownPeers = peer.NewPeerSet()
	}

	tcfg := cfg.Transport
	tcfg.EvHandler = ev

	beneficiary := cfg.Beneficiary
	if beneficiary == "" {
		beneficiary = cfg.Host
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	state := State{
		host:        cfg.Host,
		beneficiary: beneficiary,
		evHandler:   ev,
		chain:       chain,
		knownPeers:  knownPeers,
		transport:   peer.NewTransport(tcfg),
		mining:      make(map[uint64]context.CancelFunc),
	}

	return &state, nil
}

// Start opens the listener and begins accepting connections from peers. When
// the configured port is 0 the host is updated with the port picked by the
// system.
func (s *State) Start() error {
	ln, err := s.transport.Listen(s.host)
	if err != nil {
		return err
	}

	// Work started by a peer message is cancelled when the node shuts down.
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.host = resolveHost(s.host, ln.Addr())
	s.listener = ln
	s.serveDone = make(chan struct{})
	s.stopServe = cancel
	done := s.serveDone
	s.mu.Unlock()

	s.evHandler("state: Start: listening: host[%s]", s.Host())

	go func() {
		defer close(done)
		s.transport.Serve(ctx, ln, s.handleMessage)
	}()

	return nil
}

// Addr returns the address the node is accepting connections on.
func (s *State) Addr() string {
	return s.Host()
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: Shutdown: started")
	defer s.evHandler("state: Shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	s.cancelMining()

	s.mu.Lock()
	ln := s.listener
	done := s.serveDone
	stop := s.stopServe
	s.listener = nil
	s.mu.Unlock()

	if ln == nil {
		return nil
	}

	stop()

	if err := ln.Close(); err != nil {
		return err
	}
	<-done

	return nil
}

// =============================================================================

// startMining registers a cancellable context for a mining operation. The
// returned function must be called once mining is over.
func (s *State) startMining(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.miningID++
	id := s.miningID
	s.mining[id] = cancel

	done := func() {
		s.mu.Lock()
		delete(s.mining, id)
		s.mu.Unlock()
		cancel()
	}

	return ctx, done
}

// cancelMining stops every mining operation in flight. Their blocks would
// no longer extend the tip.
func (s *State) cancelMining() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cancel := range s.mining {
		cancel()
	}

	if len(s.mining) > 0 {
		s.evHandler("state: cancelMining: MINING: CANCEL: operations[%d]", len(s.mining))
	}
}

// resolveHost replaces a zero port with the port of the listener.
func resolveHost(host string, addr net.Addr) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil || port != "0" {
		return host
	}

	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return addr.String()
	}

	if h == "" {
		h = tcp.IP.String()
	}

	return net.JoinHostPort(h, strconv.Itoa(tcp.Port))
}
