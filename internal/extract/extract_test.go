package extract

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dse-bonds/internal/model"
)

const reportHTML = `<!DOCTYPE html>
<html>
<head>
  <title>DSE Bond Trading Report</title>
  <style>td { padding: 2px; }</style>
  <script>var rows = "ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789";</script>
</head>
<body>
  <h2>Dar es Salaam Stock Exchange</h2>
  <p>Government bonds traded during the day</p>
  <table>
    <tr><th>Bond No.</th><th>Term (Years)</th><th>Coupon (%)</th><th>Issue Date</th>
        <th>Maturity Date</th><th>Deals</th><th>Trade Date</th><th>Amount (Bln TZS)</th>
        <th>Price (%)</th><th>Yield</th></tr>
    <tr><td>725</td><td>15</td><td>13.50</td><td>17/08/2016</td><td>17/08/2031</td>
        <td>2</td><td>12/03/2024</td><td>1.50000</td><td>99.8500</td><td>13.5512</td></tr>
    <tr><td>T25</td><td>20</td><td>15.49</td><td>05/04/2023</td><td>05/04/2043</td>
        <td>1</td><td>12/03/2024</td><td>0.25000</td><td>104.0000</td><td>14.8010</td></tr>
  </table>
  <!-- Bond No. in a comment must not count -->
</body>
</html>`

func TestExtract_Scenario(t *testing.T) {
	doc := "Weekly summary... Bond No. ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789 ..."

	trades, err := Extract(doc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.BondTrade{
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
	}, trades[0])
}

func TestExtract_ScenarioWithoutDots(t *testing.T) {
	doc := "Bond No. ABC 12 1.20 01/01/2020 01/01/2025 3 02/02/2020 100.12345 98.1234 5.6789"

	trades, err := Extract(doc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "12", trades[0].TermYears)
	assert.Equal(t, "1.20", trades[0].CouponPct)
	assert.Equal(t, "5.6789", trades[0].YieldPct)
}

func TestExtract_HTMLTable(t *testing.T) {
	trades, err := Extract(reportHTML)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "725", trades[0].BondNo)
	assert.Equal(t, "15", trades[0].TermYears)
	assert.Equal(t, "13.50", trades[0].CouponPct)
	assert.Equal(t, "17/08/2031", trades[0].MaturityDate)
	assert.Equal(t, "12/03/2024", trades[0].TradeDate)
	assert.Equal(t, "1.50000", trades[0].AmountBln)
	assert.Equal(t, "13.5512", trades[0].YieldPct)

	assert.Equal(t, "T25", trades[1].BondNo)
	assert.Equal(t, "104.0000", trades[1].PricePct)
}

func TestExtract_MarkerMissing(t *testing.T) {
	docs := []string{
		"",
		"<html><body><p>No trades today</p></body></html>",
		"ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
		"<p>Bond</p><p>Number</p> ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
		"<!-- Bond No. --> ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
	}
	for _, doc := range docs {
		trades, err := Extract(doc)
		assert.True(t, eris.Is(err, ErrMarkerNotFound), "doc %q", doc)
		assert.Nil(t, trades)
	}
}

func TestExtract_MarkerInScriptIgnored(t *testing.T) {
	doc := `<script>var h = "Bond No.";</script><p>ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789</p>`
	_, err := Extract(doc)
	assert.True(t, eris.Is(err, ErrMarkerNotFound))
}

func TestExtract_NoData(t *testing.T) {
	trades, err := Extract("<table><tr><th>Bond No.</th></tr><tr><td>none traded</td></tr></table>")
	assert.True(t, eris.Is(err, ErrNoDataFound))
	assert.Nil(t, trades)
}

func TestExtract_MarkerSpansElements(t *testing.T) {
	doc := "<td>Bond</td><td>No.</td><td>ABC</td><td>12</td><td>1.20</td><td>01/01/2020</td>" +
		"<td>01/01/2025</td><td>3</td><td>02/02/2020</td><td>100.12345</td><td>98.1234</td><td>5.6789</td>"

	trades, err := Extract(doc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ABC", trades[0].BondNo)
}

func TestExtract_RowsBeforeMarkerIgnored(t *testing.T) {
	doc := "XYZ.10.2.50.01/01/2019.01/01/2029.1.05/05/2019.1.00000.100.0000.2.5000 " +
		"Bond No. ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789"

	trades, err := Extract(doc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "ABC", trades[0].BondNo)
}

func TestParseDense_ShortCouponNeverMatches(t *testing.T) {
	dense := Densify("ABC.12.1.2.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789")
	assert.Empty(t, ParseDense(dense))
}

func TestParseDense_StrictArity(t *testing.T) {
	cases := map[string]string{
		"three digit term":  "ABC.123.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
		"short amount":      "ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.1234.98.1234.5.6789",
		"short yield":       "ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.678",
		"two digit deals":   "ABC.12.1.20.01/01/2020.01/01/2025.31.02/02/2020.100.12345.98.1234.5.6789",
		"short issue year":  "ABC.12.1.20.01/01/20.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
		"two char bond no.": "AB.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, ParseDense(Densify(in)))
		})
	}
}

func TestParseDense_OrderPreserved(t *testing.T) {
	first := "ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789"
	second := "XYZ.5.10.50.03/03/2021.03/03/2026.2.04/04/2021.20.00000.101.5000.9.8750"

	trades := ParseDense(first + second)
	require.Len(t, trades, 2)
	assert.Equal(t, "ABC", trades[0].BondNo)
	assert.Equal(t, "XYZ", trades[1].BondNo)
	assert.Equal(t, "5", trades[1].TermYears)
	assert.Equal(t, "10.50", trades[1].CouponPct)

	trades = ParseDense(second + first)
	require.Len(t, trades, 2)
	assert.Equal(t, "XYZ", trades[0].BondNo)
	assert.Equal(t, "ABC", trades[1].BondNo)
}

func TestParseDense_NoiseBetweenMatchesSkipped(t *testing.T) {
	dense := "header" +
		"ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789" +
		"--garbage--" +
		"XYZ.5.10.50.03/03/2021.03/03/2026.2.04/04/2021.20.00000.101.5000.9.8750" +
		"Total"
	trades := ParseDense(dense)
	require.Len(t, trades, 2)
	assert.Equal(t, []string{"ABC", "XYZ"}, []string{trades[0].BondNo, trades[1].BondNo})
}

func TestDensify(t *testing.T) {
	assert.Equal(t, "BondNo.ABC12", Densify("Bond No.\n\tABC\r\n 12"))
	assert.Equal(t, "ABC12", Densify("ABC 12"))
	assert.Equal(t, "", Densify(" \t\n"))
}

func TestIsUserErrorAndMessage(t *testing.T) {
	assert.True(t, IsUserError(ErrMarkerNotFound))
	assert.True(t, IsUserError(eris.Wrap(ErrNoDataFound, "pipeline: extract")))
	assert.False(t, IsUserError(eris.New("db down")))

	assert.Equal(t, "Pattern not found in the text.", Message(ErrMarkerNotFound))
	assert.Equal(t, "No matching data found.", Message(ErrNoDataFound))
	assert.Equal(t, "", Message(eris.New("other")))
}

func TestExtract_LargeReport(t *testing.T) {
	row := "ABC.12.1.20.01/01/2020.01/01/2025.3.02/02/2020.100.12345.98.1234.5.6789 "
	doc := "<pre>Bond No. " + strings.Repeat(row, 500) + "</pre>"

	trades, err := Extract(doc)
	require.NoError(t, err)
	assert.Len(t, trades, 500)
}
