package constants

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

const (
	Testnet3 string = "testnet3"
	Testnet4 string = "testnet4"
	Mainnet  string = "mainnet"
	Signet   string = "signet"
	Regtest  string = "regtest"
)

// Envelope literal embedded in every commit leaf script.
const EnvelopeMarker = "wizz"

// sats
const DustAmount int64 = 546

// Sequence used on reveal inputs so nLockTime is enforced while staying replaceable.
const RevealSequence uint32 = 0xfffffffd

// Maximum size of a single data push in a null-data script.
const MaxPushSize = 520

func IsTestnet(networkName string) bool {
	return networkName == Testnet3 || networkName == Testnet4
}

// MempoolBase is the default mempool.space API root for a network.
func MempoolBase(networkName string) string {
	switch networkName {
	case Mainnet:
		return "https://mempool.space/api"
	case Testnet4:
		return "https://mempool.space/testnet4/api"
	case Signet:
		return "https://mempool.space/signet/api"
	default:
		return "https://mempool.space/testnet/api"
	}
}

// NetworkParams maps a network name to btcd chain parameters. Testnet4 and
// signet share address encoding with testnet3.
func NetworkParams(networkName string) (*chaincfg.Params, error) {
	switch networkName {
	case Mainnet, "livenet":
		return &chaincfg.MainNetParams, nil
	case Testnet3, Testnet4, "testnet":
		return &chaincfg.TestNet3Params, nil
	case Signet:
		return &chaincfg.SigNetParams, nil
	case Regtest:
		return &chaincfg.RegressionNetParams, nil
	}
	return nil, fmt.Errorf("unknown network %q", networkName)
}
