package extract

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// skipText lists elements whose text content is not part of the report.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"template": true,
}

// StripMarkup returns the text content of an HTML document. Text nodes are
// joined with a single space so content from adjacent elements never runs
// together. Character references are decoded and comments are dropped.
func StripMarkup(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))

	var (
		parts []string
		skip  int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or truncated input: keep what was read.
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipText[string(name)] && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			parts = append(parts, string(z.Text()))
		}
	}
}

// Decode converts raw document bytes to text. The encoding is taken from a
// byte order mark, the contentType charset parameter, or a <meta> charset
// declaration, in that order, falling back to UTF-8 / windows-1252 sniffing.
// The name of the encoding used is returned alongside the text.
func Decode(raw []byte, contentType string) (string, string, error) {
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", name, eris.Wrapf(err, "extract: decode %s", name)
	}
	return string(out), name, nil
}

// DecodeAs converts raw bytes using an explicitly named encoding
// (e.g. "windows-1252", "iso-8859-1").
func DecodeAs(raw []byte, name string) (string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", eris.Wrapf(err, "extract: unsupported charset %q", name)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", eris.Wrapf(err, "extract: decode %s", name)
	}
	return string(out), nil
}
