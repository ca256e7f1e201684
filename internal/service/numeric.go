package service

import (
	"github.com/shopspring/decimal"
)

// Weights are reported in grams to 3 places, money to 2. Intermediate values
// keep full precision; rounding happens only where a figure leaves the ledger
// or becomes a physical quantity (a weight that is stored).
//
// Stored money columns keep StoredMoneyPlaces; every money figure handed to
// the recorder is rounded to that scale first so a lot's columns and the sum
// of its movements agree on any backend.
const (
	WeightPlaces      int32 = 3
	MoneyPlaces       int32 = 2
	StoredMoneyPlaces int32 = 8
	FineWeightPlaces  int32 = 6
)

func RoundWeight(d decimal.Decimal) decimal.Decimal { return d.Round(WeightPlaces) }

func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

func roundStored(d decimal.Decimal) decimal.Decimal { return d.Round(StoredMoneyPlaces) }

// fitsWeightScale reports whether d is representable in a weight column.
func fitsWeightScale(d decimal.Decimal) bool { return d.Equal(RoundWeight(d)) }

// weightedAverage blends an existing holding with an inbound one:
// (oldM*oldCost + inM*inCost) / (oldM + inM). An empty result keeps inCost.
func weightedAverage(oldMeasure, oldCost, inMeasure, inCost decimal.Decimal) decimal.Decimal {
	total := oldMeasure.Add(inMeasure)
	if !total.IsPositive() {
		return inCost
	}
	value := oldMeasure.Mul(oldCost).Add(inMeasure.Mul(inCost))
	return value.Div(total)
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
