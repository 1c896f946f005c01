package ledger

import (
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/payload"

	"github.com/holiman/uint256"
)

type Kind string

const (
	KindBTC   Kind = "btc"
	KindRunes Kind = "runes"
)

type Status string

const (
	StatusCreated  Status = "created"
	StatusLocking  Status = "locking"
	StatusUnlocked Status = "unlocked"
	StatusError    Status = "error"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusCreated: {StatusLocking, StatusError},
	StatusLocking: {StatusUnlocked, StatusError},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCreated, StatusLocking, StatusUnlocked, StatusError:
		return st, nil
	}
	return "", contracterrors.NewContractError(contracterrors.ErrInput, "unknown status "+s)
}

// CanTransition reports whether an order may move from one status to the other.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type RuneStatus string

const (
	RuneActive   RuneStatus = "active"
	RuneInactive RuneStatus = "inactive"
)

// RuneListing is a rune accepted for staking.
type RuneListing struct {
	RuneID   string
	Status   RuneStatus
	MinStake uint256.Int
}

// User is a registered staker. Blocked users can neither stake nor list
// their orders.
type User struct {
	Address   string
	PublicKey string // hex, compressed or x-only
	XOnly     [32]byte
	Blocked   bool
}

type OrderRecord struct {
	ID          [4]byte
	Kind        Kind
	RuneID      string // empty for BTC orders
	StakeAmount uint256.Int
	Payload     payload.Payload
	Address     string
	Status      Status
	Reason      string // set with StatusError
	CommitTxID  string
	CreatedAt   int64 // unix seconds
	UpdatedAt   int64
}

// Filter narrows Orders; empty fields match everything.
type Filter struct {
	Address string
	RuneID  string
	Kind    Kind
	Status  Status
}

func (f *Filter) match(r *OrderRecord) bool {
	return (f.Address == "" || r.Address == f.Address) &&
		(f.RuneID == "" || r.RuneID == f.RuneID) &&
		(f.Kind == "" || r.Kind == f.Kind) &&
		(f.Status == "" || r.Status == f.Status)
}
