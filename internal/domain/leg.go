package domain

// Direction indicates which side of a swap a leg records.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Transaction type labels attached to legs.
// TxTypeSellAll is part of the vocabulary for stored data compatibility
// but is never produced by the engine.
const (
	TxTypeFirstBuy = "first buy"
	TxTypeBuyMore  = "buy more"
	TxTypeSell     = "sell"
	TxTypeSellAll  = "sell all"
)

// Leg is a normalized, directional trade record derived from one swap
// transaction. A single signature may produce zero, one, or two legs.
// Legs are immutable once emitted.
// Corresponds to the legs table in PostgreSQL.
type Leg struct {
	Signature   string    // transaction signature
	Wallet      string    // tracked wallet address
	Timestamp   int64     // Unix timestamp in seconds
	Slot        int64     // Solana slot number
	Direction   Direction // buy | sell
	TokenMint   string    // the traded (non-base) token
	TokenSymbol string    // symbol of the traded token
	CounterMint string    // the other side of the swap
	Amount      float64   // traded amount, always >= 0
	UsdValue    float64   // USD value of the leg, 0 when unknown
	UsdUnknown  bool      // true when no price could be resolved
	Venue       string    // swap venue label
	FeeLamports int64     // fee attributed to this leg (0 on the buy half of a two-leg swap)

	TransactionType string // "first buy" | "buy more" | "sell"
}
