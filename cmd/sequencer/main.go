package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/frmdex/params"
	"github.com/uhyunpark/frmdex/pkg/api"
	"github.com/uhyunpark/frmdex/pkg/p2p"
	"github.com/uhyunpark/frmdex/pkg/sequencer"
	"github.com/uhyunpark/frmdex/pkg/storage"
	"github.com/uhyunpark/frmdex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file unless LOG_FILE is empty)
	var logger *zap.Logger
	var err error
	if cfg.Node.LogFile == "" {
		logger, err = util.NewLogger(cfg.Node.Verbose)
	} else {
		logger, err = util.NewLoggerWithFile(cfg.Node.LogFile, cfg.Node.Verbose)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile, "verbose", cfg.Node.Verbose)

	// ---- Ledger ----
	var ledger storage.Ledger
	if cfg.Node.LedgerPath == "" {
		ledger = storage.NewMemoryLedger()
		sugar.Warn("ledger_in_memory - replays are only rejected until restart")
	} else {
		pl, err := storage.OpenPebbleLedger(cfg.Node.LedgerPath, nil)
		if err != nil {
			sugar.Fatalw("ledger_open_failed", "path", cfg.Node.LedgerPath, "err", err)
		}
		ledger = pl
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			sugar.Errorw("ledger_close_failed", "err", err)
		}
	}()

	// ---- Sequencer ----
	seq, err := sequencer.New(ledger, util.RealClock{}, sugar)
	if err != nil {
		sugar.Fatalw("sequencer_init_failed", "err", err)
	}
	seq.VerboseLogging = cfg.Node.Verbose

	lastSeq, _ := ledger.LastSeq()
	sugar.Infow("sequencer_starting",
		"ledger_path", cfg.Node.LedgerPath,
		"resume_seq", lastSeq+1,
		"drain_interval_ms", cfg.Node.DrainInterval.Milliseconds(),
		"drain_batch", cfg.Node.DrainBatch)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Gossip (optional) ----
	// Enable with: P2P_LISTEN=/ip4/0.0.0.0/tcp/4001 P2P_BOOTSTRAP=<matcher multiaddrs>
	var gossip *p2p.OrderGossip
	if cfg.Gossip.ListenAddr != "" {
		gossip, err = p2p.NewOrderGossip(ctx, p2p.GossipConfig{
			ListenAddr: cfg.Gossip.ListenAddr,
			Bootstrap:  cfg.Gossip.Bootstrap,
			Logger:     sugar,
		})
		if err != nil {
			sugar.Fatalw("gossip_init_failed", "err", err)
		}
		defer gossip.Close()
	} else {
		sugar.Info("gossip_disabled - drained batches are only logged")
	}
	var publish func(context.Context, []sequencer.Sequenced) error
	if gossip != nil {
		publish = gossip.PublishBatch
	}

	// ---- API Server ----
	// NewServer hooks the order feed into seq.OnAccept
	apiServer := api.NewServer(seq, cfg.API, sugar)
	apiDone := make(chan error, 1)
	go func() {
		apiDone <- apiServer.Run(ctx)
	}()

	// Drain loop: hand accepted orders to the matchers in sequence order.
	ticker := time.NewTicker(cfg.Node.DrainInterval)
	defer ticker.Stop()

	var drained uint64
	for {
		select {
		case <-ctx.Done():
			if err := <-apiDone; err != nil {
				sugar.Errorw("api_server_failed", "err", err)
			}
			sugar.Infow("sequencer_stopped", "drained", drained, "pending", seq.Len())
			return
		case err := <-apiDone:
			if err != nil {
				sugar.Errorw("api_server_failed", "err", err)
			}
			stop()
			return
		case <-ticker.C:
			batch, err := seq.Deliver(ctx, cfg.Node.DrainBatch, publish)
			if len(batch) == 0 {
				continue
			}
			if err != nil {
				sugar.Errorw("batch_publish_failed",
					"first_seq", batch[0].Seq,
					"last_seq", batch[len(batch)-1].Seq,
					"requeued", len(batch),
					"err", err)
				continue
			}
			drained += uint64(len(batch))
			sugar.Infow("batch_drained",
				"count", len(batch),
				"first_seq", batch[0].Seq,
				"last_seq", batch[len(batch)-1].Seq,
				"pending", seq.Len())
		}
	}
}
