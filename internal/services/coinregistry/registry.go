package coinregistry

import (
	"errors"
	"sort"
	"strings"
)

// Registry holds the set of known coins in registration order (the
// defaultCoins table is listed by ascending market cap rank; NewRegistry
// does not sort it) and indexed by symbol for fast lookup.
type Registry struct {
	coins       []CoinMetadata
	symbolIndex map[string]int
}

// NewRegistry returns a Registry pre-populated with the SLIP-44 entries
// for roughly the top 44 coins by market capitalization.
func NewRegistry() *Registry {
	r := &Registry{
		coins:       make([]CoinMetadata, 0, 48),
		symbolIndex: make(map[string]int),
	}

	for _, c := range defaultCoins {
		r.addCoin(c)
	}

	return r
}

var defaultCoins = []CoinMetadata{
	{Symbol: "BTC", Name: "Bitcoin", CoinType: 0, MarketCapRank: 1, KeyType: KeyTypeSecp256k1},
	{Symbol: "ETH", Name: "Ethereum", CoinType: 60, MarketCapRank: 2, KeyType: KeyTypeSecp256k1},
	{Symbol: "USDT", Name: "Tether", CoinType: 60, MarketCapRank: 3, KeyType: KeyTypeSecp256k1},
	{Symbol: "BNB", Name: "BNB", CoinType: 714, MarketCapRank: 4, KeyType: KeyTypeSecp256k1},
	{Symbol: "SOL", Name: "Solana", CoinType: 501, MarketCapRank: 5, KeyType: KeyTypeEd25519},
	{Symbol: "USDC", Name: "USD Coin", CoinType: 60, MarketCapRank: 6, KeyType: KeyTypeSecp256k1},
	{Symbol: "XRP", Name: "XRP", CoinType: 144, MarketCapRank: 7, KeyType: KeyTypeSecp256k1},
	{Symbol: "DOGE", Name: "Dogecoin", CoinType: 3, MarketCapRank: 8, KeyType: KeyTypeSecp256k1},
	{Symbol: "ADA", Name: "Cardano", CoinType: 1815, MarketCapRank: 9, KeyType: KeyTypeEd25519},
	{Symbol: "TRX", Name: "TRON", CoinType: 195, MarketCapRank: 10, KeyType: KeyTypeSecp256k1},
	{Symbol: "AVAX", Name: "Avalanche", CoinType: 9000, MarketCapRank: 11, KeyType: KeyTypeSecp256k1},
	{Symbol: "SHIB", Name: "Shiba Inu", CoinType: 60, MarketCapRank: 12, KeyType: KeyTypeSecp256k1},
	{Symbol: "DOT", Name: "Polkadot", CoinType: 354, MarketCapRank: 13, KeyType: KeyTypeSr25519},
	{Symbol: "LINK", Name: "Chainlink", CoinType: 60, MarketCapRank: 14, KeyType: KeyTypeSecp256k1},
	{Symbol: "MATIC", Name: "Polygon", CoinType: 966, MarketCapRank: 15, KeyType: KeyTypeSecp256k1},
	{Symbol: "LTC", Name: "Litecoin", CoinType: 2, MarketCapRank: 16, KeyType: KeyTypeSecp256k1},
	{Symbol: "BCH", Name: "Bitcoin Cash", CoinType: 145, MarketCapRank: 17, KeyType: KeyTypeSecp256k1},
	{Symbol: "XLM", Name: "Stellar", CoinType: 148, MarketCapRank: 18, KeyType: KeyTypeEd25519},
	{Symbol: "UNI", Name: "Uniswap", CoinType: 60, MarketCapRank: 19, KeyType: KeyTypeSecp256k1},
	{Symbol: "ATOM", Name: "Cosmos", CoinType: 118, MarketCapRank: 20, KeyType: KeyTypeSecp256k1},
	{Symbol: "ETC", Name: "Ethereum Classic", CoinType: 61, MarketCapRank: 21, KeyType: KeyTypeSecp256k1},
	{Symbol: "XMR", Name: "Monero", CoinType: 128, MarketCapRank: 22, KeyType: KeyTypeEd25519},
	{Symbol: "FIL", Name: "Filecoin", CoinType: 461, MarketCapRank: 23, KeyType: KeyTypeSecp256k1},
	{Symbol: "HBAR", Name: "Hedera", CoinType: 3030, MarketCapRank: 24, KeyType: KeyTypeEd25519},
	{Symbol: "APT", Name: "Aptos", CoinType: 637, MarketCapRank: 25, KeyType: KeyTypeEd25519},
	{Symbol: "VET", Name: "VeChain", CoinType: 818, MarketCapRank: 26, KeyType: KeyTypeSecp256k1},
	{Symbol: "ALGO", Name: "Algorand", CoinType: 283, MarketCapRank: 27, KeyType: KeyTypeEd25519},
	{Symbol: "NEAR", Name: "NEAR Protocol", CoinType: 397, MarketCapRank: 28, KeyType: KeyTypeEd25519},
	{Symbol: "ZEC", Name: "Zcash", CoinType: 133, MarketCapRank: 29, KeyType: KeyTypeSecp256k1},
	{Symbol: "DASH", Name: "Dash", CoinType: 5, MarketCapRank: 30, KeyType: KeyTypeSecp256k1},
	{Symbol: "ARB", Name: "Arbitrum", CoinType: 9001, MarketCapRank: 31, KeyType: KeyTypeSecp256k1},
	{Symbol: "OP", Name: "Optimism", CoinType: 614, MarketCapRank: 32, KeyType: KeyTypeSecp256k1},
	{Symbol: "BASE", Name: "Base", CoinType: 8453, MarketCapRank: 33, KeyType: KeyTypeSecp256k1},
	{Symbol: "ZKS", Name: "zkSync", CoinType: 324, MarketCapRank: 34, KeyType: KeyTypeSecp256k1},
	{Symbol: "LINEA", Name: "Linea", CoinType: 59144, MarketCapRank: 35, KeyType: KeyTypeSecp256k1},
	{Symbol: "STRK", Name: "Starknet", CoinType: 9004, MarketCapRank: 36, KeyType: KeyTypeSecp256k1},
	{Symbol: "KLAY", Name: "Klaytn", CoinType: 8217, MarketCapRank: 37, KeyType: KeyTypeSecp256k1},
	{Symbol: "CRO", Name: "Cronos", CoinType: 394, MarketCapRank: 38, KeyType: KeyTypeSecp256k1},
	{Symbol: "HT", Name: "HECO", CoinType: 1010, MarketCapRank: 39, KeyType: KeyTypeSecp256k1},
	{Symbol: "ONE", Name: "Harmony", CoinType: 1023, MarketCapRank: 40, KeyType: KeyTypeSecp256k1},
	{Symbol: "OSMO", Name: "Osmosis", CoinType: 118, MarketCapRank: 41, KeyType: KeyTypeSecp256k1},
	{Symbol: "JUNO", Name: "Juno", CoinType: 118, MarketCapRank: 42, KeyType: KeyTypeSecp256k1},
	{Symbol: "EVMOS", Name: "Evmos", CoinType: 60, MarketCapRank: 43, KeyType: KeyTypeSecp256k1},
	{Symbol: "SCRT", Name: "Secret Network", CoinType: 529, MarketCapRank: 44, KeyType: KeyTypeSecp256k1},
}

// addCoin adds a coin to the registry.
func (r *Registry) addCoin(coin CoinMetadata) {
	r.coins = append(r.coins, coin)
	r.symbolIndex[coin.Symbol] = len(r.coins) - 1
}

// GetCoinBySymbol retrieves coin metadata by symbol (case-insensitive).
func (r *Registry) GetCoinBySymbol(symbol string) (*CoinMetadata, error) {
	symbol = strings.ToUpper(symbol)

	index, exists := r.symbolIndex[symbol]
	if !exists {
		return nil, errors.New("coinregistry: coin not found: " + symbol)
	}
	return &r.coins[index], nil
}

// GetCoinByType retrieves the first coin matching the given SLIP-44 coin
// type. Several coins share a coin type (e.g. ERC-20 tokens all use
// Ethereum's 60); callers needing a specific one should use
// GetCoinBySymbol instead.
func (r *Registry) GetCoinByType(coinType uint32) (*CoinMetadata, error) {
	for i := range r.coins {
		if r.coins[i].CoinType == coinType {
			return &r.coins[i], nil
		}
	}
	return nil, errors.New("coinregistry: no coin registered for coin type")
}

// GetAllCoinsSortedByMarketCap returns every coin, sorted by market cap
// rank ascending (rank 1 first).
func (r *Registry) GetAllCoinsSortedByMarketCap() []CoinMetadata {
	sorted := make([]CoinMetadata, len(r.coins))
	copy(sorted, r.coins)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MarketCapRank < sorted[j].MarketCapRank
	})

	return sorted
}
