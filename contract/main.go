// talos-staking builds and serves Bitcoin staking transactions: commit
// outputs that lock BTC or runes under a time-locked tapscript leaf, and
// the reveals that unlock them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"talos-staking/contract/api"
	"talos-staking/contract/blocklist"
	"talos-staking/contract/config"
	"talos-staking/contract/feerate"
	"talos-staking/contract/ledger"
	"talos-staking/contract/logger"
	"talos-staking/contract/metrics"
	"talos-staking/contract/store"
	"talos-staking/contract/wallet"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"
)

var commonFlags = []cli.Flag{configFlag, networkFlag, logLevelFlag}

func main() {
	app := cli.App{
		Name:  "talos-staking",
		Usage: "BTC and rune staking transaction builder",
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API with the ledger and the fee poller",
				Flags:  append([]cli.Flag{listenFlag, dbPathFlag}, commonFlags...),
				Action: serveAction,
			},
			{
				Name:   "decode",
				Usage:  "print the staking payload of a transaction or script",
				Flags:  append([]cli.Flag{txFlag, scriptFlag}, commonFlags...),
				Action: decodeAction,
			},
			{
				Name:   "address",
				Usage:  "print the commit address of an order",
				Flags:  append([]cli.Flag{publicKeyFlag, orderIDFlag, lockTimeFlag}, commonFlags...),
				Action: addressAction,
			},
			{
				Name:  "order-btc",
				Usage: "build the commit transaction of a BTC stake",
				Flags: append([]cli.Flag{
					publicKeyFlag, addressFlag, orderIDFlag, lockTimeFlag, stakeFlag,
					feeRateFlag, utxoFlag, payloadFlag, signFlag, walletFlag, broadcastFlag,
				}, commonFlags...),
				Action: orderBTCAction,
			},
			{
				Name:  "order-runes",
				Usage: "build the commit transaction of a rune stake",
				Flags: append([]cli.Flag{
					publicKeyFlag, addressFlag, orderIDFlag, lockTimeFlag, stakeFlag, runeIDFlag,
					feeRateFlag, utxoFlag, runeUtxoFlag, payloadFlag, signFlag, walletFlag, broadcastFlag,
				}, commonFlags...),
				Action: orderRunesAction,
			},
			{
				Name:  "unlock",
				Usage: "build the reveal that returns a stake once its lock height is reached",
				Flags: append([]cli.Flag{
					txFlag, publicKeyFlag, addressFlag, feeRateFlag, utxoFlag, signFlag, walletFlag, broadcastFlag,
				}, commonFlags...),
				Action: unlockAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the command-line overrides.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if v := ctx.String(networkFlag.Name); v != "" {
		cfg.Network = v
		cfg.MempoolBase = ""
	}
	if v := ctx.String(listenFlag.Name); v != "" {
		cfg.Listen = v
	}
	if v := ctx.String(dbPathFlag.Name); v != "" {
		cfg.DBPath = v
	}
	if v := ctx.String(logLevelFlag.Name); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDB(cfg *config.Config, log *zap.SugaredLogger) (*store.LevelDB, error) {
	if cfg.DBPath == "" {
		log.Warn("no db_path configured, the ledger lives in memory")
		return store.NewMem()
	}
	return store.New(cfg.DBPath, store.Options{CacheSize: 64, OpenFilesCacheCapacity: 256})
}

func serveAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() { log.Info("closing database..."); db.Close() }()

	m := metrics.New()
	fees := new(feerate.Cache)
	poller := feerate.NewPoller(cfg.MempoolBase, cfg.FeePoll, fees, m, logger.Named(log, "fees"))
	server := api.New(api.Options{
		Network:     cfg.Params(),
		Ledger:      ledger.New(db, m, logger.Named(log, "ledger")),
		Blocks:      blocklist.New(db, logger.Named(log, "blocks")),
		Fees:        fees,
		FallbackFee: cfg.FallbackFee,
		Broadcaster: wallet.NewMempoolBroadcaster(cfg.MempoolBase, cfg.HTTPTimeout),
		Metrics:     m,
		Log:         logger.Named(log, "api"),
	})

	exit, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infow("starting", "network", cfg.Network, "listen", cfg.Listen, "mempool", cfg.MempoolBase)
	g, gctx := errgroup.WithContext(exit)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return server.Run(gctx, cfg.Listen) })
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "serve")
	}
	log.Info("exited")
	return nil
}
