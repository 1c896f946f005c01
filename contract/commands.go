package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"talos-staking/contract/commitreveal"
	"talos-staking/contract/config"
	"talos-staking/contract/contracterrors"
	"talos-staking/contract/feerate"
	"talos-staking/contract/logger"
	"talos-staking/contract/payload"
	"talos-staking/contract/protocol"
	"talos-staking/contract/runestone"
	"talos-staking/contract/staking"
	"talos-staking/contract/wallet"

	"github.com/CosmWasm/tinyjson"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	cli "gopkg.in/urfave/cli.v1"
)

// env is what every one-shot command needs.
type env struct {
	cfg     *config.Config
	log     *zap.SugaredLogger
	wallet  *wallet.LocalProvider // nil without private_key
	wallets *wallet.Registry
}

func newEnv(ctx *cli.Context) (*env, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, wallets: wallet.NewRegistry()}
	if cfg.PrivateKey != "" {
		broadcaster := wallet.NewMempoolBroadcaster(cfg.MempoolBase, cfg.HTTPTimeout)
		e.wallet, err = wallet.NewLocalProviderFromHex(cfg.PrivateKey, cfg.Params(), broadcaster, logger.Named(log, "wallet"))
		if err != nil {
			return nil, err
		}
		e.wallets.Register(e.wallet)
	}
	return e, nil
}

// publicKey is the --pubkey flag, else the wallet key.
func (e *env) publicKey(ctx *cli.Context) ([]byte, error) {
	if v := ctx.String(publicKeyFlag.Name); v != "" {
		publicKey, err := hex.DecodeString(v)
		if err != nil {
			return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "pubkey")
		}
		return publicKey, nil
	}
	if e.wallet == nil {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, "need --pubkey or a configured private_key")
	}
	return e.wallet.GetPublicKey(context.Background())
}

// sender resolves the staker key and address from flags, then the wallet.
func (e *env) sender(ctx *cli.Context) ([]byte, string, error) {
	publicKey, err := e.publicKey(ctx)
	if err != nil {
		return nil, "", err
	}
	address := ctx.String(addressFlag.Name)
	if address == "" {
		if e.wallet == nil {
			return nil, "", contracterrors.NewContractError(contracterrors.ErrInput, "need --address or a configured private_key")
		}
		address = e.wallet.Address()
	}
	return publicKey, address, nil
}

// feeRate is the flag value, else the half-hour rate of the next mempool
// block, else the configured fallback. A given flag is passed through as is
// and checked by the builders.
func (e *env) feeRate(ctx *cli.Context) float64 {
	if ctx.IsSet(feeRateFlag.Name) {
		return ctx.Float64(feeRateFlag.Name)
	}
	cache := new(feerate.Cache)
	poller := feerate.NewPoller(e.cfg.MempoolBase, e.cfg.FeePoll, cache, nil, logger.Named(e.log, "fees"))
	fetchCtx, cancel := context.WithTimeout(context.Background(), e.cfg.HTTPTimeout)
	defer cancel()
	if err := poller.Refresh(fetchCtx); err != nil {
		e.log.Warnf("fee rate unavailable, using fallback %v: %s", e.cfg.FallbackFee, err)
	}
	rate := cache.HalfHour(e.cfg.FallbackFee)
	e.log.Infof("fee rate %v sat/vB", rate)
	return rate
}

// parseUtxo reads txid:vout:value with an optional block:tx:amount rune
// balance.
func parseUtxo(s string, pkScript []byte) (*staking.Utxo, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 && len(parts) != 6 {
		return nil, contracterrors.NewContractError(contracterrors.ErrInput, fmt.Sprintf("utxo %q is not txid:vout:value", s))
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, "utxo vout")
	}
	value, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, "utxo value")
	}
	utxo := &staking.Utxo{TxId: parts[0], Vout: uint32(vout), Amount: value, PkScript: pkScript}
	if len(parts) == 6 {
		id, err := runestone.ParseRuneID(parts[3] + ":" + parts[4])
		if err != nil {
			return nil, err
		}
		amount, err := uint256.FromDecimal(parts[5])
		if err != nil {
			return nil, contracterrors.WrapContractError(contracterrors.ErrInput, err, "rune amount")
		}
		utxo.RuneID = id.String()
		utxo.RuneValue = *amount
	}
	return utxo, nil
}

func parseUtxos(values []string, pkScript []byte) ([]*staking.Utxo, error) {
	out := make([]*staking.Utxo, 0, len(values))
	for _, v := range values {
		utxo, err := parseUtxo(v, pkScript)
		if err != nil {
			return nil, err
		}
		out = append(out, utxo)
	}
	return out, nil
}

func orderID(ctx *cli.Context) ([4]byte, error) {
	if v := ctx.String(orderIDFlag.Name); v != "" {
		return payload.ParseID(v)
	}
	var id [4]byte
	if _, err := rand.Read(id[:]); err != nil {
		return id, errors.Wrap(err, "order id")
	}
	return id, nil
}

func lockTime(ctx *cli.Context) (uint32, error) {
	v := ctx.Uint64(lockTimeFlag.Name)
	if v == 0 || v > uint64(^uint32(0)) {
		return 0, contracterrors.NewContractError(contracterrors.ErrFieldRange, fmt.Sprintf("lock time %d", v))
	}
	return uint32(v), nil
}

func xOnly(publicKey []byte) ([32]byte, error) {
	var out [32]byte
	raw, err := commitreveal.XOnly(publicKey)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

// finish prints the unsigned packet, or signs and optionally broadcasts it.
func (e *env) finish(ctx *cli.Context, packet *psbt.Packet) error {
	if !ctx.Bool(signFlag.Name) && !ctx.Bool(broadcastFlag.Name) {
		b64, err := packet.B64Encode()
		if err != nil {
			return errors.Wrap(err, "encode psbt")
		}
		fmt.Println("psbt:", b64)
		return nil
	}
	kind, err := wallet.ParseKind(ctx.String(walletFlag.Name))
	if err != nil {
		return err
	}
	provider, err := e.wallets.Get(kind)
	if err != nil {
		return contracterrors.Prepend(err, "signing needs a configured private_key")
	}
	tx, err := wallet.SignAndExtract(context.Background(), provider, packet)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return errors.Wrap(err, "serialize tx")
	}
	fmt.Println("tx:", hex.EncodeToString(buf.Bytes()))
	if !ctx.Bool(broadcastFlag.Name) {
		return nil
	}
	pushCtx, cancel := context.WithTimeout(context.Background(), e.cfg.HTTPTimeout)
	defer cancel()
	txid, err := provider.PushTx(pushCtx, tx)
	if err != nil {
		return err
	}
	fmt.Println("txid:", txid)
	return nil
}

func printOrder(order *staking.Order) {
	fmt.Println("commit address:", order.Descriptor.Address.EncodeAddress())
	fmt.Println("leaf script:", commitreveal.Disasm(order.Descriptor.LeafScript))
	fmt.Printf("inputs: %d outputs: %d fee: %d\n", len(order.Inputs), len(order.Outputs), order.Fee)
}

func decodeRawTx(s string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "transaction")
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, contracterrors.WrapContractError(contracterrors.ErrTransaction, err, "transaction")
	}
	return tx, nil
}

func decodeAction(ctx *cli.Context) error {
	var (
		p   *payload.Payload
		err error
	)
	switch {
	case ctx.String(txFlag.Name) != "":
		tx, err := decodeRawTx(ctx.String(txFlag.Name))
		if err != nil {
			return err
		}
		if p, err = payload.Decipher(tx); err != nil {
			return err
		}
	case ctx.String(scriptFlag.Name) != "":
		script, err := hex.DecodeString(ctx.String(scriptFlag.Name))
		if err != nil {
			return contracterrors.WrapContractError(contracterrors.ErrInvalidHex, err, "script")
		}
		if p, err = payload.DecodeScript(script); err != nil {
			return err
		}
	default:
		return contracterrors.NewContractError(contracterrors.ErrInput, "need --tx or --script")
	}
	out, err := tinyjson.Marshal(p)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func addressAction(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	publicKey, err := e.publicKey(ctx)
	if err != nil {
		return err
	}
	id, err := payload.ParseID(ctx.String(orderIDFlag.Name))
	if err != nil {
		return err
	}
	lock, err := lockTime(ctx)
	if err != nil {
		return err
	}
	key, err := commitreveal.XOnly(publicKey)
	if err != nil {
		return err
	}
	descriptor, err := commitreveal.Build(byte(protocol.TagId), id[:], lock, key, e.cfg.Params())
	if err != nil {
		return err
	}
	fmt.Println("commit address:", descriptor.Address.EncodeAddress())
	fmt.Println("leaf script:", commitreveal.Disasm(descriptor.LeafScript))
	fmt.Println("control block:", hex.EncodeToString(descriptor.Redeem.ControlBlock))
	return nil
}


// orderRequest collects the flags shared by both order commands.
func (e *env) orderRequest(ctx *cli.Context) (*staking.OrderRequest, []byte, error) {
	publicKey, address, err := e.sender(ctx)
	if err != nil {
		return nil, nil, err
	}
	senderScript, err := staking.AddressScript(address, e.cfg.Params())
	if err != nil {
		return nil, nil, err
	}
	id, err := orderID(ctx)
	if err != nil {
		return nil, nil, err
	}
	lock, err := lockTime(ctx)
	if err != nil {
		return nil, nil, err
	}
	req := &staking.OrderRequest{
		OrderID:   id[:],
		LockTime:  lock,
		PublicKey: publicKey,
		Address:   address,
		FeeRate:   e.feeRate(ctx),
		Network:   e.cfg.Params(),
	}
	if ctx.Bool(payloadFlag.Name) {
		staker, err := xOnly(publicKey)
		if err != nil {
			return nil, nil, err
		}
		req.Payload = payload.New(id, staker, lock)
	}
	fmt.Println("order id:", hex.EncodeToString(id[:]))
	return req, senderScript, nil
}

func orderBTCAction(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	req, senderScript, err := e.orderRequest(ctx)
	if err != nil {
		return err
	}
	stake, err := strconv.ParseInt(ctx.String(stakeFlag.Name), 10, 64)
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrInput, err, "stake")
	}
	balance, err := parseUtxos(ctx.StringSlice(utxoFlag.Name), senderScript)
	if err != nil {
		return err
	}
	order, err := staking.BuildBTCOrder(&staking.BTCOrderRequest{
		OrderRequest: *req,
		Balance:      balance,
		Stake:        stake,
	})
	if err != nil {
		return err
	}
	printOrder(&order.Order)
	fmt.Printf("commit amount: %d commit fee: %d reveal fee: %d total fee: %d\n",
		order.CommitAmount, order.CommitFee, order.RevealFee, order.TotalFee)
	return e.finish(ctx, order.Packet)
}

func orderRunesAction(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	req, senderScript, err := e.orderRequest(ctx)
	if err != nil {
		return err
	}
	runeID, err := runestone.ParseRuneID(ctx.String(runeIDFlag.Name))
	if err != nil {
		return err
	}
	stake, err := uint256.FromDecimal(ctx.String(stakeFlag.Name))
	if err != nil {
		return contracterrors.WrapContractError(contracterrors.ErrInput, err, "stake")
	}
	runeUtxos, err := parseUtxos(ctx.StringSlice(runeUtxoFlag.Name), senderScript)
	if err != nil {
		return err
	}
	balance, err := parseUtxos(ctx.StringSlice(utxoFlag.Name), senderScript)
	if err != nil {
		return err
	}
	order, err := staking.BuildRunesOrder(&staking.RunesOrderRequest{
		OrderRequest: *req,
		RuneID:       runeID,
		RuneUtxos:    runeUtxos,
		Balance:      balance,
		Stake:        *stake,
	})
	if err != nil {
		return err
	}
	printOrder(order)
	return e.finish(ctx, order.Packet)
}

func unlockAction(ctx *cli.Context) error {
	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	commitTx, err := decodeRawTx(ctx.String(txFlag.Name))
	if err != nil {
		return err
	}
	publicKey, address, err := e.sender(ctx)
	if err != nil {
		return err
	}
	senderScript, err := staking.AddressScript(address, e.cfg.Params())
	if err != nil {
		return err
	}
	balance, err := parseUtxos(ctx.StringSlice(utxoFlag.Name), senderScript)
	if err != nil {
		return err
	}
	order, p, err := staking.UnlockFromCommit(&staking.CommitUnlockRequest{
		CommitTx:  commitTx,
		PublicKey: publicKey,
		Address:   address,
		Balance:   balance,
		FeeRate:   e.feeRate(ctx),
		Network:   e.cfg.Params(),
	})
	if err != nil {
		return err
	}
	fmt.Printf("order id: %s lock time: %d\n", p.IDHex(), p.LockTime)
	printOrder(order)
	return e.finish(ctx, order.Packet)
}
