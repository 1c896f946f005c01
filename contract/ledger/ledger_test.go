package ledger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"talos-staking/contract/contracterrors"
	"talos-staking/contract/metrics"
	"talos-staking/contract/store"

	"github.com/CosmWasm/tinyjson"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "tb1palice"
	bob   = "tb1pbob"
)

func newTestLedger(t *testing.T, ids ...byte) (*Ledger, *metrics.Metrics) {
	db, err := store.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.New()
	l := New(db, m, nil)
	clock := int64(1700000000)
	l.now = func() time.Time {
		clock++
		return time.Unix(clock, 0)
	}
	if len(ids) > 0 {
		l.rand = bytes.NewReader(ids)
	}
	return l, m
}

func registerUser(t *testing.T, l *Ledger, address string, seed byte) *User {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	user, err := l.AddUser(address, key.PubKey().SerializeCompressed())
	require.NoError(t, err)
	return user
}

func TestUsers(t *testing.T) {
	l, _ := newTestLedger(t)
	user := registerUser(t, l, alice, 1)
	assert.False(t, user.Blocked)

	got, err := l.User(alice)
	require.NoError(t, err)
	assert.Equal(t, user.XOnly, got.XOnly)
	assert.Len(t, got.PublicKey, 66)

	_, err = l.AddUser(bob, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, contracterrors.ErrInvalidPubKey), "got %v", err)

	require.NoError(t, l.BlockUser(alice))
	got, err = l.User(alice)
	require.NoError(t, err)
	assert.True(t, got.Blocked)

	assert.True(t, errors.Is(l.BlockUser(bob), contracterrors.ErrNotFound))
	require.NoError(t, l.RemoveUser(alice))
	_, err = l.User(alice)
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound))
}

func TestRuneListings(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.AddRune(RuneListing{RuneID: "840000:3", MinStake: *uint256.NewInt(100)}))
	err := l.AddRune(RuneListing{RuneID: "840000:3"})
	assert.True(t, errors.Is(err, contracterrors.ErrInput), "got %v", err)
	assert.True(t, errors.Is(l.AddRune(RuneListing{RuneID: "nope"}), contracterrors.ErrInput))

	listing, err := l.Rune("840000:3")
	require.NoError(t, err)
	assert.Equal(t, RuneActive, listing.Status)
	assert.Equal(t, uint64(100), listing.MinStake.Uint64())

	require.NoError(t, l.AddRune(RuneListing{RuneID: "1:0", Status: RuneInactive}))
	runes, err := l.Runes()
	require.NoError(t, err)
	assert.Len(t, runes, 2)

	require.NoError(t, l.SetRuneStatus("1:0", RuneActive))
	listing, err = l.Rune("1:0")
	require.NoError(t, err)
	assert.Equal(t, RuneActive, listing.Status)

	require.NoError(t, l.RemoveRune("1:0"))
	_, err = l.Rune("1:0")
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound))
}

func TestCreateRunesOrder(t *testing.T) {
	l, _ := newTestLedger(t, 0xde, 0xad, 0xbe, 0xef)
	user := registerUser(t, l, alice, 1)
	require.NoError(t, l.AddRune(RuneListing{RuneID: "840000:3", MinStake: *uint256.NewInt(100)}))

	record, err := l.CreateRunesOrder(alice, "840000:3", 830000, uint256.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0xde, 0xad, 0xbe, 0xef}, record.ID)
	assert.Equal(t, KindRunes, record.Kind)
	assert.Equal(t, StatusCreated, record.Status)
	assert.Equal(t, record.ID, record.Payload.ID)
	assert.Equal(t, user.XOnly, record.Payload.Staker)
	assert.Equal(t, uint32(830000), record.Payload.LockTime)
	assert.Equal(t, uint64(1), record.Payload.Protocol)

	stored, err := l.Order(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record, stored)
}

func TestCreateRunesOrderChecks(t *testing.T) {
	l, _ := newTestLedger(t)
	registerUser(t, l, alice, 1)
	require.NoError(t, l.AddRune(RuneListing{RuneID: "840000:3", MinStake: *uint256.NewInt(100)}))
	require.NoError(t, l.AddRune(RuneListing{RuneID: "840000:4", Status: RuneInactive}))

	_, err := l.CreateRunesOrder(alice, "1:1", 1, uint256.NewInt(500))
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound), "got %v", err)

	_, err = l.CreateRunesOrder(alice, "840000:4", 1, uint256.NewInt(500))
	assert.True(t, errors.Is(err, contracterrors.ErrRuneInactive), "got %v", err)

	_, err = l.CreateRunesOrder(alice, "840000:3", 1, uint256.NewInt(99))
	assert.True(t, errors.Is(err, contracterrors.ErrBelowMinStake), "got %v", err)

	_, err = l.CreateRunesOrder(alice, "840000:3", 1, uint256.NewInt(100))
	assert.NoError(t, err)

	_, err = l.CreateRunesOrder(bob, "840000:3", 1, uint256.NewInt(500))
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound), "got %v", err)

	require.NoError(t, l.BlockUser(alice))
	_, err = l.CreateRunesOrder(alice, "840000:3", 1, uint256.NewInt(500))
	assert.True(t, errors.Is(err, contracterrors.ErrUserBlocked), "got %v", err)

	_, err = l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	assert.True(t, errors.Is(err, contracterrors.ErrUserBlocked), "got %v", err)
}

func TestOrderIDCollision(t *testing.T) {
	l, _ := newTestLedger(t, 1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2)
	registerUser(t, l, alice, 1)

	first, err := l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	require.NoError(t, err)
	second, err := l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	require.NoError(t, err)
	assert.Equal(t, [4]byte{1, 1, 1, 1}, first.ID)
	assert.Equal(t, [4]byte{2, 2, 2, 2}, second.ID)
}

func TestTransitions(t *testing.T) {
	l, m := newTestLedger(t)
	registerUser(t, l, alice, 1)
	record, err := l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	require.NoError(t, err)

	_, err = l.Transition(record.ID, StatusUnlocked, "", "")
	assert.True(t, errors.Is(err, contracterrors.ErrStatusTransition), "got %v", err)

	locked, err := l.Transition(record.ID, StatusLocking, "", "ab01")
	require.NoError(t, err)
	assert.Equal(t, "ab01", locked.CommitTxID)
	assert.Greater(t, locked.UpdatedAt, locked.CreatedAt)

	unlocked, err := l.Transition(record.ID, StatusUnlocked, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ab01", unlocked.CommitTxID)

	for _, to := range []Status{StatusCreated, StatusLocking, StatusUnlocked, StatusError} {
		_, err = l.Transition(record.ID, to, "", "")
		assert.True(t, errors.Is(err, contracterrors.ErrStatusTransition), "unlocked -> %s", to)
	}

	other, err := l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	require.NoError(t, err)
	failed, err := l.Transition(other.ID, StatusError, "commit never confirmed", "")
	require.NoError(t, err)
	assert.Equal(t, "commit never confirmed", failed.Reason)
	_, err = l.Transition(other.ID, StatusLocking, "", "")
	assert.True(t, errors.Is(err, contracterrors.ErrStatusTransition))

	_, err = l.Transition([4]byte{9, 9, 9, 9}, StatusLocking, "", "")
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatusChanges.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatusChanges.WithLabelValues("error")))
}

func TestOrdersFilter(t *testing.T) {
	l, _ := newTestLedger(t)
	registerUser(t, l, alice, 1)
	registerUser(t, l, bob, 2)
	require.NoError(t, l.AddRune(RuneListing{RuneID: "840000:3"}))

	a1, err := l.CreateRunesOrder(alice, "840000:3", 1, uint256.NewInt(5))
	require.NoError(t, err)
	_, err = l.CreateBTCOrder(alice, 1, uint256.NewInt(50000))
	require.NoError(t, err)
	_, err = l.CreateRunesOrder(bob, "840000:3", 1, uint256.NewInt(7))
	require.NoError(t, err)

	all, err := l.Orders(Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := l.Orders(Filter{Address: alice})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a1.ID, mine[0].ID)

	runes, err := l.Orders(Filter{RuneID: "840000:3"})
	require.NoError(t, err)
	assert.Len(t, runes, 2)

	btc, err := l.Orders(Filter{Kind: KindBTC})
	require.NoError(t, err)
	assert.Len(t, btc, 1)

	require.NoError(t, l.BlockUser(bob))
	_, err = l.Orders(Filter{Address: bob})
	assert.True(t, errors.Is(err, contracterrors.ErrUserBlocked))

	require.NoError(t, l.RemoveOrder(a1.ID))
	_, err = l.Order(a1.ID)
	assert.True(t, errors.Is(err, contracterrors.ErrNotFound))
}

func TestRecordJSON(t *testing.T) {
	l, _ := newTestLedger(t, 0, 0, 0, 7)
	registerUser(t, l, alice, 1)
	stake, err := uint256.FromDecimal("340282366920938463463374607431768211455")
	require.NoError(t, err)
	record, err := l.CreateBTCOrder(alice, 830000, stake)
	require.NoError(t, err)

	out, err := tinyjson.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"00000007"`)
	assert.Contains(t, string(out), `"stake_amount":"340282366920938463463374607431768211455"`)
	assert.NotContains(t, string(out), `"reason"`)

	var back OrderRecord
	require.NoError(t, tinyjson.Unmarshal(out, &back))
	assert.Equal(t, *record, back)

	_, err = l.CreateBTCOrder(alice, 1, new(uint256.Int).Lsh(uint256.NewInt(1), 128))
	assert.True(t, errors.Is(err, contracterrors.ErrInput))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusCreated, StatusLocking))
	assert.True(t, CanTransition(StatusCreated, StatusError))
	assert.True(t, CanTransition(StatusLocking, StatusUnlocked))
	assert.True(t, CanTransition(StatusLocking, StatusError))
	assert.False(t, CanTransition(StatusCreated, StatusUnlocked))
	assert.False(t, CanTransition(StatusError, StatusCreated))

	_, err := ParseStatus("locking")
	assert.NoError(t, err)
	_, err = ParseStatus("pending")
	assert.Error(t, err)
}
