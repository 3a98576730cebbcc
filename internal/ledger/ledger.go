// Package ledger talks to the external ledger service that holds account
// balances and executes transfers. The service is the system of record for
// payments; this package only queries and submits, it never verifies
// signatures.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Transfer is the transfer operation recorded inside a ledger block.
// From and To are derived addresses, not raw account identifiers.
type Transfer struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// Block is one historical ledger block. Memo carries the correlation token
// the sender attached to the transfer.
type Block struct {
	Index    uint64   `json:"index"`
	Memo     uint64   `json:"memo"`
	Transfer Transfer `json:"transfer"`
}

// TransferArgs describes an outgoing transfer.
type TransferArgs struct {
	Memo           uint64     `json:"memo"`
	Amount         uint64     `json:"amount"`
	Fee            uint64     `json:"fee"`
	FromSubaccount *string    `json:"from_subaccount,omitempty"`
	To             string     `json:"to"`
	CreatedAtTime  *time.Time `json:"created_at_time,omitempty"`
}

// Client is the ledger operation surface the lottery consumes.
type Client interface {
	// TransferFee returns the flat fee the ledger charges per transfer.
	TransferFee(ctx context.Context) (uint64, error)
	// Transfer submits a transfer and returns the block index it landed in.
	Transfer(ctx context.Context, args TransferArgs) (uint64, error)
	// QueryBlocks returns length blocks starting at block index start.
	QueryBlocks(ctx context.Context, start, length uint64) ([]Block, error)
}

// AccountAddress derives the ledger address for an account identifier.
// Derivation is a content hash, so equal accounts always map to the same
// address and verification can compare addresses without a reverse lookup.
func AccountAddress(account string) string {
	sum := sha256.Sum256([]byte(account))
	return hex.EncodeToString(sum[:])
}
