package domain

// DustEpsilon is the threshold below which a balance change is treated as noise.
// Changes with |change| <= DustEpsilon never reach the classifier.
const DustEpsilon = 1e-6

// TokenDelta represents one token's net balance change within a single
// transaction, already divided by 10^decimals.
type TokenDelta struct {
	Mint     string  // token mint address
	Change   float64 // signed amount, positive = received, negative = spent
	Symbol   string  // token symbol, may be empty for unknown tokens
	Decimals int     // token decimals
}

// SwapTransaction is one signed transaction's worth of wallet-attributed
// balance changes, as delivered by the chain-data collaborator. The
// collaborator has already decided which deltas belong to the wallet and
// which program executed the swap.
type SwapTransaction struct {
	Signature   string // Solana transaction signature
	Wallet      string // tracked wallet address
	Timestamp   int64  // Unix timestamp in seconds
	Slot        int64  // Solana slot number
	FeeLamports int64  // transaction fee in lamports
	Venue       string // swap venue/program label (e.g. "raydium", "jupiter")

	WalletTokenDeltas []TokenDelta // net per-mint changes for the wallet
}
