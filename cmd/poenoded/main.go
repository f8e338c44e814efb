package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/urfave/cli"

	"github.com/poenetwork/node/internal/chain"
	"github.com/poenetwork/node/internal/chain/utxocache"
	"github.com/poenetwork/node/internal/config"
	"github.com/poenetwork/node/internal/log"
	"github.com/poenetwork/node/internal/storage"
	"github.com/poenetwork/node/internal/storage/reportindex"
)

var logger = log.NewModuleLogger(log.ModuleConfig)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "path to a TOML configuration file",
	Value: "poenode.toml",
}

func main() {
	app := cli.NewApp()
	app.Name = "poenoded"
	app.Usage = "proof-of-eligibility chain manager node"
	app.Flags = []cli.Flag{configFileFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(colorable.NewColorableStderr(), color.RedString("fatal: %v", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFileFlag.Name))
	if err != nil {
		return err
	}

	printBanner(cfg)

	blobs, err := storage.NewBlobStore(cfg.Storage.BlobStoreDir)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	defer blobs.Close()

	inventory, err := storage.NewInventoryStore(cfg.Storage.InventoryStoreDir)
	if err != nil {
		return fmt.Errorf("open inventory store: %w", err)
	}
	defer inventory.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, dataRequests, err := chain.LoadOrInit(ctx, blobs)
	if err != nil {
		return fmt.Errorf("load chain state: %w", err)
	}

	var coldBackup chain.ColdBackup
	if cfg.Storage.ColdBackupBucket != "" {
		cb, err := storage.NewColdBackup(cfg.Storage.ColdBackupBucket)
		if err != nil {
			return fmt.Errorf("open cold backup: %w", err)
		}
		coldBackup = cb
	}

	var reportIndex chain.ReportIndex
	if cfg.Storage.ReportIndexDSN != "" {
		idx, err := reportindex.Open(cfg.Storage.ReportIndexDSN)
		if err != nil {
			return fmt.Errorf("open report index: %w", err)
		}
		defer idx.Close()
		reportIndex = idx
	}

	utxoCache := utxocache.New(int(cfg.Storage.UTXOCacheSize))

	peers := noopPeerLayer{}
	manager := chain.NewManager(state, dataRequests, blobs, inventory, peers, chain.StubProofVerifier{}, cfg.Consensus, coldBackup, reportIndex, utxoCache)
	defer manager.Stop()

	driver := chain.NewSyncDriver(manager, peers, cfg.Consensus)
	go driver.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	debugSig := make(chan os.Signal, 1)
	signal.Notify(debugSig, syscall.SIGUSR1)

	for {
		select {
		case <-sig:
			// No persist runs on shutdown: the chain state on disk is the
			// one written by the most recent promotion.
			logger.Info("shutting down")
			return nil
		case <-debugSig:
			report := manager.DebugMemSize()
			logger.Info("chain state memory report", "total_bytes", report.TotalBytes)
			fmt.Fprintln(colorable.NewColorableStdout(), report.Breakdown)
		}
	}
}

func printBanner(cfg config.Config) {
	banner := color.New(color.FgHiCyan, color.Bold)
	banner.Fprintln(colorable.NewColorableStdout(), "poenoded — proof-of-eligibility chain manager")
	fmt.Fprintf(colorable.NewColorableStdout(), "  environment: %s\n  checkpoint period: %s\n", cfg.Environment, cfg.EpochDuration())
}

// noopPeerLayer is the default PeerLayer until the real peer-session
// collaborator is wired in; it satisfies chain.PeerLayer without sending
// anything, since wire framing is explicitly out of scope (spec.md §1).
type noopPeerLayer struct{}

func (noopPeerLayer) Broadcast(context.Context, chain.SendInventoryItem) error { return nil }
func (noopPeerLayer) Anycast(context.Context, chain.AnycastMessage) error      { return nil }
