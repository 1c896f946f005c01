package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML configuration file",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "network to use (mainnet|testnet3|testnet4|signet|regtest), overrides the config",
	}
	listenFlag = cli.StringFlag{
		Name:  "listen",
		Usage: "API service listening address, overrides the config",
	}
	dbPathFlag = cli.StringFlag{
		Name:  "db-path",
		Usage: "directory of the ledger database, overrides the config",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "log level (debug|info|warn|error), overrides the config",
	}

	txFlag = cli.StringFlag{
		Name:  "tx",
		Usage: "raw transaction as hex",
	}
	scriptFlag = cli.StringFlag{
		Name:  "script",
		Usage: "output script as hex",
	}
	publicKeyFlag = cli.StringFlag{
		Name:  "pubkey",
		Usage: "staker public key as hex, defaults to the configured wallet",
	}
	addressFlag = cli.StringFlag{
		Name:  "address",
		Usage: "sender and change address, defaults to the configured wallet",
	}
	orderIDFlag = cli.StringFlag{
		Name:  "order-id",
		Usage: "4-byte order id as hex",
	}
	lockTimeFlag = cli.Uint64Flag{
		Name:  "lock-time",
		Usage: "block height at which the stake unlocks",
	}
	feeRateFlag = cli.Float64Flag{
		Name:  "fee-rate",
		Usage: "fee rate in sat/vB, fetched from mempool when unset",
	}
	stakeFlag = cli.StringFlag{
		Name:  "stake",
		Usage: "amount to stake: sats for BTC, a decimal amount for runes",
	}
	runeIDFlag = cli.StringFlag{
		Name:  "rune-id",
		Usage: "rune id as block:tx",
	}
	utxoFlag = cli.StringSliceFlag{
		Name:  "utxo",
		Usage: "wallet output as txid:vout:value, repeatable",
	}
	runeUtxoFlag = cli.StringSliceFlag{
		Name:  "rune-utxo",
		Usage: "rune output as txid:vout:value:block:tx:amount, repeatable",
	}
	payloadFlag = cli.BoolFlag{
		Name:  "payload",
		Usage: "embed the staking payload in the commit",
	}
	signFlag = cli.BoolFlag{
		Name:  "sign",
		Usage: "sign with the configured wallet and print the raw transaction",
	}
	walletFlag = cli.StringFlag{
		Name:  "wallet",
		Value: "local",
		Usage: "wallet that signs and broadcasts",
	}
	broadcastFlag = cli.BoolFlag{
		Name:  "broadcast",
		Usage: "broadcast the signed transaction",
	}
)
