package models

// Coin categories used by the rebalancer's target allocation.
const (
	CategoryStablecoins  = "stablecoins"
	CategoryBitcoin      = "bitcoin"
	CategoryLargeCapAlts = "largeCapAlts"
	CategoryMidCapAlts   = "midCapAlts"
	CategorySmallCapAlts = "smallCapAlts"
)

// Categories lists the closed category set in allocation-table order.
var Categories = []string{
	CategoryStablecoins,
	CategoryBitcoin,
	CategoryLargeCapAlts,
	CategoryMidCapAlts,
	CategorySmallCapAlts,
}

// categoryBySymbol is a static membership table over base symbols.
var categoryBySymbol = map[string]string{
	"USDT": CategoryStablecoins,
	"USDC": CategoryStablecoins,
	"DAI":  CategoryStablecoins,
	"TUSD": CategoryStablecoins,

	"BTC":  CategoryBitcoin,
	"WBTC": CategoryBitcoin,

	"ETH":  CategoryLargeCapAlts,
	"BNB":  CategoryLargeCapAlts,
	"SOL":  CategoryLargeCapAlts,
	"XRP":  CategoryLargeCapAlts,
	"ADA":  CategoryLargeCapAlts,

	"AVAX":  CategoryMidCapAlts,
	"DOT":   CategoryMidCapAlts,
	"LINK":  CategoryMidCapAlts,
	"MATIC": CategoryMidCapAlts,
	"LTC":   CategoryMidCapAlts,
	"ATOM":  CategoryMidCapAlts,

	"ARB":  CategorySmallCapAlts,
	"OP":   CategorySmallCapAlts,
	"INJ":  CategorySmallCapAlts,
	"SEI":  CategorySmallCapAlts,
	"TIA":  CategorySmallCapAlts,
	"RUNE": CategorySmallCapAlts,
}

// CategoryForPair classifies a pair by its base symbol. Unknown symbols
// default to stablecoins so they never inflate risk-asset exposure.
func CategoryForPair(pair string) string {
	if c, ok := categoryBySymbol[BaseSymbol(pair)]; ok {
		return c
	}
	return CategoryStablecoins
}
