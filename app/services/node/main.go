package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/powchain/app/services/node/handlers"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/worker"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:120s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			CorsOrigin      string        `conf:"default:*"`
		}
		Node struct {
			Host         string        `conf:"default:127.0.0.1:9080"`
			Beneficiary  string        `conf:"default:miner1"`
			Difficulty   int           `conf:"help:overrides the difficulty of the genesis settings"`
			HashStrategy string        `conf:"help:overrides the hash strategy (sha256 keccak256 chameleon)"`
			ChameleonKey string        `conf:"help:public key of the chameleon strategy"`
			GenesisFile  string        `conf:"help:path of a genesis file or empty for the defaults"`
			PeerHost     string        `conf:"help:host of the seed peer to connect to at startup"`
			PeerPort     int           `conf:"help:port of the seed peer"`
			KnownPeers   []string      `conf:"help:host:port of more peers to connect to at startup"`
			SyncInterval time.Duration `conf:"default:1m"`
		}
		Transport struct {
			DialTimeout    time.Duration `conf:"default:5s"`
			IOTimeout      time.Duration `conf:"default:10s"`
			MaxMessageSize int64         `conf:"default:33554432"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work blockchain node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	// Every node on the network must agree on the genesis settings. They
	// decide the genesis block, the hash strategy and the difficulty.
	gen := genesis.Default()
	if cfg.Node.GenesisFile != "" {
		if gen, err = genesis.Load(cfg.Node.GenesisFile); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}

	if cfg.Node.Difficulty != 0 {
		gen.Difficulty = cfg.Node.Difficulty
	}
	if cfg.Node.HashStrategy != "" {
		gen.Strategy = cfg.Node.HashStrategy
	}
	if cfg.Node.ChameleonKey != "" {
		gen.ChameleonKey = cfg.Node.ChameleonKey
	}

	hasher, err := digest.New(gen.Strategy, gen.ChameleonKey)
	if err != nil {
		return fmt.Errorf("%w: %w", genesis.ErrConfig, err)
	}

	log.Infow("startup", "status", "genesis", "difficulty", gen.Difficulty, "strategy", hasher.Strategy())

	// =========================================================================
	// Blockchain Support

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	// The state value represents the blockchain node and manages the chain
	// and provides an API for application support.
	state, err := state.New(state.Config{
		Host:        cfg.Node.Host,
		Beneficiary: cfg.Node.Beneficiary,
		Genesis:     gen,
		Hasher:      hasher,
		Transport: peer.TransportConfig{
			DialTimeout:    cfg.Transport.DialTimeout,
			IOTimeout:      cfg.Transport.IOTimeout,
			MaxMessageSize: cfg.Transport.MaxMessageSize,
		},
		EvHandler: ev,
	})
	if err != nil {
		return err
	}
	defer state.Shutdown()

	if err := state.Start(); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}

	// Connect to the configured peers. A peer that is down is not fatal, it
	// can be connected later through the API.
	peers := cfg.Node.KnownPeers
	if cfg.Node.PeerHost != "" {
		peers = append([]string{net.JoinHostPort(cfg.Node.PeerHost, strconv.Itoa(cfg.Node.PeerPort))}, peers...)
	}

	for _, host := range peers {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Transport.DialTimeout)
		err := state.ConnectPeer(ctx, host)
		cancel()

		if err != nil {
			log.Infow("startup", "status", "connect peer", "host", host, "WARNING", err)
		}
	}

	// The worker package implements the different workflows such as mining,
	// transaction peer sharing, and chain sync. The worker will register
	// itself with the state.
	worker.RunWithInterval(state, cfg.Node.SyncInterval, ev)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, state)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		State:      state,
		Evts:       evts,
		CorsOrigin: cfg.Web.CorsOrigin,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
