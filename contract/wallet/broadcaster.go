package wallet

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, tx *wire.MsgTx) (string, error)
}

// MempoolBroadcaster pushes raw transactions to a mempool.space style REST
// API (POST {base}/tx with the hex body, txid in the response).
type MempoolBroadcaster struct {
	base   string
	client *http.Client
}

func NewMempoolBroadcaster(base string, timeout time.Duration) *MempoolBroadcaster {
	return &MempoolBroadcaster{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (b *MempoolBroadcaster) Broadcast(ctx context.Context, tx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", errors.Wrap(err, "serialize tx")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/tx", strings.NewReader(hex.EncodeToString(buf.Bytes())))
	if err != nil {
		return "", errors.Wrap(err, "new broadcast request")
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "broadcast")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "read broadcast response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("broadcast rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}
