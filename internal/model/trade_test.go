package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrade() BondTrade {
	return BondTrade{
		BondNo:       "ABC",
		TermYears:    "12",
		CouponPct:    "1.20",
		IssueDate:    "01/01/2020",
		MaturityDate: "01/01/2025",
		Deals:        "3",
		TradeDate:    "02/02/2020",
		AmountBln:    "100.12345",
		PricePct:     "98.1234",
		YieldPct:     "5.6789",
	}
}

func TestColumnsAndHeadersAligned(t *testing.T) {
	assert.Len(t, Columns(), 10)
	assert.Len(t, Headers(), 10)
	assert.Equal(t, "TradeDate", Columns()[6])
	assert.Equal(t, "Trade Date", Headers()[6])
	assert.Equal(t, "Bond_No.", Headers()[0])
}

func TestColumns_ReturnsCopy(t *testing.T) {
	cols := Columns()
	cols[0] = "mutated"
	assert.Equal(t, "Bond_No.", Columns()[0])
}

func TestBondTrade_ValuesOrder(t *testing.T) {
	v := sampleTrade().Values()
	assert.Equal(t, []string{
		"ABC", "12", "1.20", "01/01/2020", "01/01/2025",
		"3", "02/02/2020", "100.12345", "98.1234", "5.6789",
	}, v)
}

func TestBondTrade_Row(t *testing.T) {
	row := sampleTrade().Row()
	require.Len(t, row, 10)
	assert.Equal(t, "ABC", row[0])
	assert.Equal(t, "5.6789", row[9])
}

func TestBondTradeFromValues(t *testing.T) {
	tr, ok := BondTradeFromValues(sampleTrade().Values())
	require.True(t, ok)
	assert.Equal(t, sampleTrade(), tr)

	_, ok = BondTradeFromValues([]string{"ABC"})
	assert.False(t, ok)
}

func TestTradeDates_DistinctInOrder(t *testing.T) {
	a := sampleTrade()
	b := sampleTrade()
	b.TradeDate = "03/02/2020"
	c := sampleTrade()

	assert.Equal(t, []string{"02/02/2020", "03/02/2020"}, TradeDates([]BondTrade{a, b, c}))
	assert.Nil(t, TradeDates(nil))
}
