package rebalance

import "paperbot/internal/models"

// targetTable maps risk level 1..10 to target allocation percentages per
// category. It is a fixed, hand-tuned glide path: stablecoin exposure falls
// to zero and small-cap exposure rises to 60% at maximum risk. Rows sum
// to 100.
var targetTable = map[int]map[string]float64{
	1:  {models.CategoryStablecoins: 50, models.CategoryBitcoin: 30, models.CategoryLargeCapAlts: 15, models.CategoryMidCapAlts: 5, models.CategorySmallCapAlts: 0},
	2:  {models.CategoryStablecoins: 40, models.CategoryBitcoin: 30, models.CategoryLargeCapAlts: 20, models.CategoryMidCapAlts: 8, models.CategorySmallCapAlts: 2},
	3:  {models.CategoryStablecoins: 32, models.CategoryBitcoin: 28, models.CategoryLargeCapAlts: 22, models.CategoryMidCapAlts: 12, models.CategorySmallCapAlts: 6},
	4:  {models.CategoryStablecoins: 25, models.CategoryBitcoin: 27, models.CategoryLargeCapAlts: 23, models.CategoryMidCapAlts: 15, models.CategorySmallCapAlts: 10},
	5:  {models.CategoryStablecoins: 18, models.CategoryBitcoin: 25, models.CategoryLargeCapAlts: 24, models.CategoryMidCapAlts: 18, models.CategorySmallCapAlts: 15},
	6:  {models.CategoryStablecoins: 12, models.CategoryBitcoin: 22, models.CategoryLargeCapAlts: 24, models.CategoryMidCapAlts: 20, models.CategorySmallCapAlts: 22},
	7:  {models.CategoryStablecoins: 8, models.CategoryBitcoin: 20, models.CategoryLargeCapAlts: 22, models.CategoryMidCapAlts: 20, models.CategorySmallCapAlts: 30},
	8:  {models.CategoryStablecoins: 4, models.CategoryBitcoin: 16, models.CategoryLargeCapAlts: 20, models.CategoryMidCapAlts: 20, models.CategorySmallCapAlts: 40},
	9:  {models.CategoryStablecoins: 2, models.CategoryBitcoin: 12, models.CategoryLargeCapAlts: 16, models.CategoryMidCapAlts: 20, models.CategorySmallCapAlts: 50},
	10: {models.CategoryStablecoins: 0, models.CategoryBitcoin: 10, models.CategoryLargeCapAlts: 12, models.CategoryMidCapAlts: 18, models.CategorySmallCapAlts: 60},
}

// TargetAllocation returns the target percentages for a risk level,
// clamping out-of-range levels to the nearest end of the glide path.
func TargetAllocation(riskLevel int) map[string]float64 {
	if riskLevel < 1 {
		riskLevel = 1
	}
	if riskLevel > 10 {
		riskLevel = 10
	}
	return targetTable[riskLevel]
}
