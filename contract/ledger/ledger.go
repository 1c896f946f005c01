// Package ledger records staking orders, the runes accepted for staking
// and the registered stakers.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"talos-staking/contract/commitreveal"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/metrics"
	"talos-staking/contract/payload"
	"talos-staking/contract/runestone"
	"talos-staking/contract/store"

	"github.com/CosmWasm/tinyjson"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

var (
	orderPrefix = []byte("o/")
	runePrefix  = []byte("r/")
	userPrefix  = []byte("u/")
)

const idAttempts = 8

func orderKey(id [4]byte) []byte {
	return append(append([]byte(nil), orderPrefix...), hex.EncodeToString(id[:])...)
}

func runeKey(runeID string) []byte {
	return append(append([]byte(nil), runePrefix...), runeID...)
}

func userKey(address string) []byte {
	return append(append([]byte(nil), userPrefix...), address...)
}

type Ledger struct {
	db      *store.LevelDB
	mu      sync.Mutex // serializes read-modify-write cycles
	now     func() time.Time
	rand    io.Reader
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func New(db *store.LevelDB, m *metrics.Metrics, log *zap.SugaredLogger) *Ledger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ledger{
		db:      db,
		now:     time.Now,
		rand:    rand.Reader,
		metrics: m,
		log:     log,
	}
}

type tinyValue interface {
	tinyjson.Marshaler
	tinyjson.Unmarshaler
}

func (l *Ledger) get(key []byte, what string, v tinyValue) error {
	raw, err := l.db.Get(key)
	if l.db.IsNotFound(err) {
		return contracterrors.NewContractError(contracterrors.ErrNotFound, what)
	}
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, what)
	}
	if err := tinyjson.Unmarshal(raw, v); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrJson, err, what)
	}
	return nil
}

func (l *Ledger) put(key []byte, v tinyValue) error {
	raw, err := tinyjson.Marshal(v)
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrJson, err, string(key))
	}
	if err := l.db.Put(key, raw); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, string(key))
	}
	return nil
}

func (l *Ledger) has(key []byte) (bool, error) {
	ok, err := l.db.Has(key)
	if err != nil {
		return false, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, string(key))
	}
	return ok, nil
}

// AddUser registers address with its public key, replacing any earlier
// registration of the same address.
func (l *Ledger) AddUser(address string, publicKey []byte) (*User, error) {
	xOnly, err := commitreveal.XOnly(publicKey)
	if err != nil {
		return nil, err
	}
	user := &User{Address: address, PublicKey: hex.EncodeToString(publicKey)}
	copy(user.XOnly[:], xOnly)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.put(userKey(address), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (l *Ledger) User(address string) (*User, error) {
	var user User
	if err := l.get(userKey(address), "user "+address, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// BlockUser marks a user as blocked. There is no way back.
func (l *Ledger) BlockUser(address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	user, err := l.User(address)
	if err != nil {
		return err
	}
	user.Blocked = true
	l.log.Infow("user blocked", "address", address)
	return l.put(userKey(address), user)
}

func (l *Ledger) RemoveUser(address string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.User(address); err != nil {
		return err
	}
	if err := l.db.Delete(userKey(address)); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "user "+address)
	}
	return nil
}

// activeUser loads a user that is allowed to stake.
func (l *Ledger) activeUser(address string) (*User, error) {
	user, err := l.User(address)
	if err != nil {
		return nil, err
	}
	if user.Blocked {
		return nil, contracterrors.NewContractError(contracterrors.ErrUserBlocked, address)
	}
	return user, nil
}

// AddRune lists a rune for staking. Listing the same rune twice fails.
func (l *Ledger) AddRune(listing RuneListing) error {
	id, err := runestone.ParseRuneID(listing.RuneID)
	if err != nil {
		return err
	}
	listing.RuneID = id.String()
	if listing.Status == "" {
		listing.Status = RuneActive
	}
	if listing.Status != RuneActive && listing.Status != RuneInactive {
		return contracterrors.NewContractError(contracterrors.ErrInput, "unknown rune status "+string(listing.Status))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	exists, err := l.has(runeKey(listing.RuneID))
	if err != nil {
		return err
	}
	if exists {
		return contracterrors.NewContractError(contracterrors.ErrInput, "rune already listed", listing.RuneID)
	}
	return l.put(runeKey(listing.RuneID), &listing)
}

func (l *Ledger) Rune(runeID string) (*RuneListing, error) {
	id, err := runestone.ParseRuneID(runeID)
	if err != nil {
		return nil, err
	}
	var listing RuneListing
	if err := l.get(runeKey(id.String()), "rune "+runeID, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (l *Ledger) SetRuneStatus(runeID string, status RuneStatus) error {
	if status != RuneActive && status != RuneInactive {
		return contracterrors.NewContractError(contracterrors.ErrInput, "unknown rune status "+string(status))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	listing, err := l.Rune(runeID)
	if err != nil {
		return err
	}
	listing.Status = status
	return l.put(runeKey(listing.RuneID), listing)
}

func (l *Ledger) RemoveRune(runeID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	listing, err := l.Rune(runeID)
	if err != nil {
		return err
	}
	if err := l.db.Delete(runeKey(listing.RuneID)); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "rune "+runeID)
	}
	return nil
}

func (l *Ledger) Runes() ([]*RuneListing, error) {
	var (
		out    []*RuneListing
		decErr error
	)
	err := l.db.Iterate(runePrefix, func(key, value []byte) bool {
		var listing RuneListing
		if decErr = tinyjson.Unmarshal(value, &listing); decErr != nil {
			return false
		}
		out = append(out, &listing)
		return true
	})
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "runes")
	}
	if decErr != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrJson, decErr, "runes")
	}
	return out, nil
}

// CreateRunesOrder records a rune stake for a registered user. The rune
// must be listed and active and the stake must reach its minimum.
func (l *Ledger) CreateRunesOrder(address string, runeID string, lockTime uint32, stake *uint256.Int) (*OrderRecord, error) {
	if err := checkStake(stake); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	user, err := l.activeUser(address)
	if err != nil {
		return nil, err
	}
	listing, err := l.Rune(runeID)
	if err != nil {
		return nil, err
	}
	if listing.Status == RuneInactive {
		return nil, contracterrors.NewContractError(contracterrors.ErrRuneInactive, listing.RuneID)
	}
	if listing.MinStake.Gt(stake) {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrBelowMinStake,
			fmt.Sprintf("stake %s, minimum %s", stake.Dec(), listing.MinStake.Dec()),
		)
	}
	return l.createOrder(user, KindRunes, listing.RuneID, lockTime, stake)
}

// CreateBTCOrder records a BTC stake for a registered user.
func (l *Ledger) CreateBTCOrder(address string, lockTime uint32, stake *uint256.Int) (*OrderRecord, error) {
	if err := checkStake(stake); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	user, err := l.activeUser(address)
	if err != nil {
		return nil, err
	}
	return l.createOrder(user, KindBTC, "", lockTime, stake)
}

func checkStake(stake *uint256.Int) error {
	if stake == nil || stake.IsZero() {
		return contracterrors.NewContractError(contracterrors.ErrInput, "stake must be positive")
	}
	if stake.BitLen() > 128 {
		return contracterrors.NewContractError(contracterrors.ErrInput, "stake exceeds 128 bits")
	}
	return nil
}

func (l *Ledger) createOrder(user *User, kind Kind, runeID string, lockTime uint32, stake *uint256.Int) (*OrderRecord, error) {
	id, err := l.newOrderID()
	if err != nil {
		return nil, err
	}
	now := l.now().Unix()
	record := &OrderRecord{
		ID:          id,
		Kind:        kind,
		RuneID:      runeID,
		StakeAmount: *stake,
		Payload:     *payload.New(id, user.XOnly, lockTime),
		Address:     user.Address,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.put(orderKey(id), record); err != nil {
		return nil, err
	}
	l.statusChanged(record)
	l.log.Infow("order created", "id", hex.EncodeToString(id[:]), "kind", kind, "address", user.Address)
	return record, nil
}

// newOrderID draws random ids until one is unused.
func (l *Ledger) newOrderID() ([4]byte, error) {
	var id [4]byte
	for i := 0; i < idAttempts; i++ {
		if _, err := io.ReadFull(l.rand, id[:]); err != nil {
			return id, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "order id")
		}
		exists, err := l.has(orderKey(id))
		if err != nil {
			return id, err
		}
		if !exists {
			return id, nil
		}
	}
	return id, contracterrors.NewContractError(contracterrors.ErrStateAccess, "no free order id")
}

func (l *Ledger) Order(id [4]byte) (*OrderRecord, error) {
	var record OrderRecord
	if err := l.get(orderKey(id), "order "+hex.EncodeToString(id[:]), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Orders lists orders matching f, oldest first. Listing by the address of
// a blocked user fails.
func (l *Ledger) Orders(f Filter) ([]*OrderRecord, error) {
	if f.Address != "" {
		if _, err := l.activeUser(f.Address); err != nil {
			return nil, err
		}
	}
	if f.RuneID != "" {
		id, err := runestone.ParseRuneID(f.RuneID)
		if err != nil {
			return nil, err
		}
		f.RuneID = id.String()
	}

	var (
		out    []*OrderRecord
		decErr error
	)
	err := l.db.Iterate(orderPrefix, func(key, value []byte) bool {
		var record OrderRecord
		if decErr = tinyjson.Unmarshal(value, &record); decErr != nil {
			return false
		}
		if f.match(&record) {
			out = append(out, &record)
		}
		return true
	})
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "orders")
	}
	if decErr != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrJson, decErr, "orders")
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Transition moves an order to status to. reason is kept for StatusError;
// commitTxID, when not empty, records the commit transaction.
func (l *Ledger) Transition(id [4]byte, to Status, reason string, commitTxID string) (*OrderRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, err := l.Order(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(record.Status, to) {
		return nil, contracterrors.NewContractError(
			contracterrors.ErrStatusTransition,
			fmt.Sprintf("%s -> %s", record.Status, to),
			hex.EncodeToString(id[:]),
		)
	}
	record.Status = to
	if to == StatusError {
		record.Reason = reason
	}
	if commitTxID != "" {
		record.CommitTxID = commitTxID
	}
	record.UpdatedAt = l.now().Unix()
	if err := l.put(orderKey(id), record); err != nil {
		return nil, err
	}
	l.statusChanged(record)
	l.log.Infow("order status changed", "id", hex.EncodeToString(id[:]), "status", to)
	return record, nil
}

func (l *Ledger) RemoveOrder(id [4]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.db.Delete(orderKey(id)); err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrStateAccess, err, "order")
	}
	return nil
}

func (l *Ledger) statusChanged(record *OrderRecord) {
	if l.metrics != nil {
		l.metrics.StatusChanges.WithLabelValues(string(record.Status)).Inc()
	}
}
