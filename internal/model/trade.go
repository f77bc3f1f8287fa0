package model

// BondTrade is one row of the DSE bond trading report. Every field holds the
// raw text captured by the extractor; nothing is coerced to a number or date.
type BondTrade struct {
	BondNo       string `json:"bond_no" yaml:"bond_no"`
	TermYears    string `json:"term_years" yaml:"term_years"`
	CouponPct    string `json:"coupon_pct" yaml:"coupon_pct"`
	IssueDate    string `json:"issue_date" yaml:"issue_date"`
	MaturityDate string `json:"maturity_date" yaml:"maturity_date"`
	Deals        string `json:"deals" yaml:"deals"`
	TradeDate    string `json:"trade_date" yaml:"trade_date"`
	AmountBln    string `json:"amount_bln" yaml:"amount_bln"`
	PricePct     string `json:"price_pct" yaml:"price_pct"`
	YieldPct     string `json:"yield_pct" yaml:"yield_pct"`
}

// BondTradeTable is the relational table bond trades are loaded into.
const BondTradeTable = "bond_data"

// TradeDateColumn is the store column used as the duplicate key.
const TradeDateColumn = "TradeDate"

var bondTradeColumns = []string{
	"Bond_No.", "Term", "Coupon", "IssueDate", "MaturityDate",
	"Deals", TradeDateColumn, "Amount", "Price", "Yield",
}

var bondTradeHeaders = []string{
	"Bond_No.", "Term (Years)", "Coupon (%)", "Issue Date", "Maturity Date",
	"Deals", "Trade Date", "Amount (Bln TZS)", "Price (%)", "Yield",
}

// Columns returns the store column names in field order.
func Columns() []string {
	out := make([]string, len(bondTradeColumns))
	copy(out, bondTradeColumns)
	return out
}

// Headers returns the human-readable spreadsheet headers in field order.
func Headers() []string {
	out := make([]string, len(bondTradeHeaders))
	copy(out, bondTradeHeaders)
	return out
}

// Values returns the ten fields in column order.
func (t BondTrade) Values() []string {
	return []string{
		t.BondNo, t.TermYears, t.CouponPct, t.IssueDate, t.MaturityDate,
		t.Deals, t.TradeDate, t.AmountBln, t.PricePct, t.YieldPct,
	}
}

// Row returns the fields as a row suitable for bulk insert.
func (t BondTrade) Row() []any {
	vals := t.Values()
	row := make([]any, len(vals))
	for i, v := range vals {
		row[i] = v
	}
	return row
}

// BondTradeFromValues builds a BondTrade from ten values in column order.
// It returns false if the slice has the wrong length.
func BondTradeFromValues(v []string) (BondTrade, bool) {
	if len(v) != len(bondTradeColumns) {
		return BondTrade{}, false
	}
	return BondTrade{
		BondNo:       v[0],
		TermYears:    v[1],
		CouponPct:    v[2],
		IssueDate:    v[3],
		MaturityDate: v[4],
		Deals:        v[5],
		TradeDate:    v[6],
		AmountBln:    v[7],
		PricePct:     v[8],
		YieldPct:     v[9],
	}, true
}

// TradeDates returns the distinct trade dates of a batch in order of first
// appearance.
func TradeDates(trades []BondTrade) []string {
	seen := make(map[string]bool, len(trades))
	var dates []string
	for _, t := range trades {
		if seen[t.TradeDate] {
			continue
		}
		seen[t.TradeDate] = true
		dates = append(dates, t.TradeDate)
	}
	return dates
}
