// Package extract recovers bond trade rows from a DSE bond trading report.
//
// The report renders its trade table as loosely structured markup, so rows
// are recovered positionally: the text after the "Bond No." header is
// stripped of all whitespace and scanned with a fixed ten-field grammar.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dse-bonds/internal/model"
)

// Marker is the literal header text that opens the trade table.
const Marker = "Bond No."

// Uploader-facing messages for the extraction outcomes.
const (
	MsgMarkerNotFound = "Pattern not found in the text."
	MsgNoDataFound    = "No matching data found."
)

var (
	// ErrMarkerNotFound is returned when the document has no trade table header.
	ErrMarkerNotFound = eris.New(MsgMarkerNotFound)
	// ErrNoDataFound is returned when the header exists but no row matches.
	ErrNoDataFound = eris.New(MsgNoDataFound)
)

// tradeRe matches one trade row in densified text. Field separators are an
// optional literal dot.
var tradeRe = regexp.MustCompile(
	`(\w{3})\.?` + // bond number
		`(\d{1,2})\.?` + // term (years)
		`(\d{1,2}\.\d{2})\.?` + // coupon
		`(\d{2}/\d{2}/\d{4})\.?` + // issue date
		`(\d{2}/\d{2}/\d{4})\.?` + // maturity date
		`(\d{1})\.?` + // deals
		`(\d{2}/\d{2}/\d{4})\.?` + // trade date
		`(\d+\.\d{5})\.?` + // amount (bln TZS)
		`(\d+\.\d{4})\.?` + // price
		`(\d+\.\d{4})`, // yield
)

// Extract parses a report document (markup or plain text) into trade rows,
// in order of appearance.
func Extract(content string) ([]model.BondTrade, error) {
	text := StripMarkup(content)

	idx := strings.Index(text, Marker)
	if idx < 0 {
		return nil, ErrMarkerNotFound
	}

	trades := ParseDense(Densify(text[idx:]))
	if len(trades) == 0 {
		return nil, ErrNoDataFound
	}
	return trades, nil
}

// Densify removes every whitespace rune, including non-breaking spaces that
// decoded &nbsp; entities leave behind.
func Densify(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ParseDense returns one trade per non-overlapping grammar match in dense.
// Text between matches is ignored.
func ParseDense(dense string) []model.BondTrade {
	matches := tradeRe.FindAllStringSubmatch(dense, -1)
	if len(matches) == 0 {
		return nil
	}

	trades := make([]model.BondTrade, 0, len(matches))
	for _, m := range matches {
		t, ok := model.BondTradeFromValues(m[1:])
		if !ok {
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

// IsUserError reports whether err is one of the extraction outcomes that
// should be shown to the uploader rather than treated as a failure.
func IsUserError(err error) bool {
	return eris.Is(err, ErrMarkerNotFound) || eris.Is(err, ErrNoDataFound)
}

// Message returns the uploader-facing text for an extraction error.
func Message(err error) string {
	switch {
	case eris.Is(err, ErrMarkerNotFound):
		return MsgMarkerNotFound
	case eris.Is(err, ErrNoDataFound):
		return MsgNoDataFound
	default:
		return ""
	}
}
