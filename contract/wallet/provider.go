// Package wallet describes the signing and broadcasting capability a
// connected wallet offers, and a local key-backed implementation of it.
package wallet

import (
	"context"
	"fmt"
	"sync"

	"talos-staking/contract/contracterrors"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

type Kind int

const (
	KindWizz Kind = iota
	KindUnisat
	KindAtom
	KindOkxTestnet
	KindOkxMainnet
	KindLocal
)

var kindNames = map[Kind]string{
	KindWizz:       "wizz",
	KindUnisat:     "unisat",
	KindAtom:       "atom",
	KindOkxTestnet: "okx-testnet",
	KindOkxMainnet: "okx-mainnet",
	KindLocal:      "local",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("unknown wallet %q", s))
}

// Provider is what a connected wallet can do for the builders.
type Provider interface {
	Kind() Kind
	RequestAccounts(ctx context.Context) ([]string, error)
	// GetPublicKey returns the compressed public key of the first account.
	GetPublicKey(ctx context.Context) ([]byte, error)
	SignMessage(ctx context.Context, message string) (string, error)
	// SignPsbt signs and finalizes every input the wallet owns, in place.
	SignPsbt(ctx context.Context, packet *psbt.Packet) (*psbt.Packet, error)
	PushTx(ctx context.Context, tx *wire.MsgTx) (string, error)
}

// Registry maps wallet kinds to connected providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[Kind]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[Kind]Provider)}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
}

func (r *Registry) Get(kind Kind) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[kind]
	if !ok {
		return nil, contracterrors.NewContractError(contracterrors.ErrNotFound, "no provider for "+kind.String())
	}
	return p, nil
}
