// Package corpbonds scrapes bond pages of corpbonds.ru.
//
// The page layout is not an API and changes without notice, so every field is
// extracted independently: a selector that no longer matches leaves that one
// field nil and never fails the whole parse.
package corpbonds

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/calm3366/bond-portfolio/internal/model"
)

const (
	priceSelector           = "#root > main > section > main > article:nth-child(1) > table > tbody > tr:nth-child(6) > td:nth-child(2) > p"
	ytmSelector             = "#root > main > section > main > article:nth-child(1) > table > tbody > tr:nth-child(2) > td:nth-child(2) > p > span:nth-child(1)"
	characteristicsSelector = "#root > main > section > main > article:nth-child(2) > table"
)

var (
	formulaKeywords  = []string{"кс", "kc", "mosprime", "ruonia", "ключ"}
	formulaExclusion = []string{"акра", "эксперт ра", "нкр"}
	couponRateKeys   = []string{"ставка купона", "процентная ставка", "плавающая ставка"}
	forecastWords    = []string{"стабильный", "позитивный", "негативный", "развивающийся"}

	numberPattern = regexp.MustCompile(`[\d\s\x{00a0}\x{202f},]+`)
)

// Record is the normalized content of one bond page. Every field is optional.
type Record struct {
	LastPrice    *float64
	YTM          *float64
	AKRA         model.Rating
	RAExpert     model.Rating
	NKR          model.Rating
	CouponType   *string
	CouponRate   *string
	Currency     *string
	Amortization *bool
}

// Empty reports whether the page yielded nothing usable.
func (r Record) Empty() bool {
	return r.LastPrice == nil && r.YTM == nil &&
		r.AKRA.Rating == nil && r.RAExpert.Rating == nil && r.NKR.Rating == nil &&
		r.CouponType == nil && r.CouponRate == nil && r.Currency == nil && r.Amortization == nil
}

// Normalize drops the summation sign, turns non-breaking spaces into spaces,
// collapses whitespace runs and trims.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "∑", "")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// IsFormula reports whether s reads like a floating coupon formula such as
// "КС + 2,5%" rather than a rating or a plain number.
func IsFormula(s string) bool {
	t := strings.ToLower(s)
	found := false
	for _, k := range formulaKeywords {
		if strings.Contains(t, k) {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, bad := range formulaExclusion {
		if strings.Contains(t, bad) {
			return false
		}
	}
	return true
}

// ExtractNumber returns the first number in s, accepting plain and
// non-breaking spaces as thousands separators and a decimal comma. It returns nil when no number can be read.
func ExtractNumber(s string) *float64 {
	for _, m := range numberPattern.FindAllString(s, -1) {
		if !strings.ContainsAny(m, "0123456789") {
			continue
		}
		raw := strings.ReplaceAll(strings.Join(strings.Fields(m), ""), ",", ".")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return nil
}

// Parse extracts a Record from a bond page. The YTM cell is only meaningful
// for OFZ pages.
func Parse(doc *goquery.Document, isOFZ bool) Record {
	var rec Record

	if el := doc.Find(priceSelector).First(); el.Length() > 0 {
		rec.LastPrice = ExtractNumber(Normalize(el.Text()))
	}
	if isOFZ {
		if el := doc.Find(ytmSelector).First(); el.Length() > 0 {
			rec.YTM = ExtractNumber(Normalize(el.Text()))
		}
	}

	parseRatings(doc, &rec)
	parseCharacteristics(doc, &rec)

	if rec.CouponRate == nil {
		doc.Find("p.val").EachWithBreak(func(_ int, p *goquery.Selection) bool {
			if txt := Normalize(p.Text()); IsFormula(txt) {
				rec.CouponRate = &txt
				return false
			}
			return true
		})
	}

	rec.Amortization = parseAmortization(doc)
	return rec
}

func parseRatings(doc *goquery.Document, rec *Record) {
	doc.Find("div.text-rating p").Each(func(_ int, p *goquery.Selection) {
		text := Normalize(p.Text())
		low := strings.ToLower(text)
		switch {
		case strings.HasPrefix(low, "акра"):
			rec.AKRA = splitRating(text, "акра")
		case strings.HasPrefix(low, "эксперт ра"):
			rec.RAExpert = splitRating(text, "эксперт ра")
		case strings.HasPrefix(low, "нкр"):
			rec.NKR = splitRating(text, "нкр")
		}
	})
}

// splitRating strips the agency prefix and separates a trailing outlook, either
// parenthesised or as a bare word.
func splitRating(text, prefix string) model.Rating {
	rest := strings.TrimSpace(string([]rune(text)[len([]rune(prefix)):]))
	rest = strings.TrimLeft(rest, ":- ")

	var forecast string
	if i := strings.LastIndex(rest, "("); i >= 0 && strings.HasSuffix(rest, ")") {
		forecast = strings.TrimSpace(rest[i+1 : len(rest)-1])
		rest = strings.TrimSpace(rest[:i])
	} else {
		low := strings.ToLower(rest)
		for _, w := range forecastWords {
			if strings.HasSuffix(low, w) {
				forecast = strings.TrimSpace(rest[len(rest)-len(w):])
				rest = strings.TrimSpace(strings.TrimRight(rest[:len(rest)-len(w)], ", "))
				break
			}
		}
	}

	var r model.Rating
	if rest != "" {
		r.Rating = &rest
	}
	if forecast != "" {
		r.Forecast = &forecast
	}
	return r
}

func parseCharacteristics(doc *goquery.Document, rec *Record) {
	table := doc.Find(characteristicsSelector).First()
	if table.Length() == 0 {
		return
	}

	table.Find("tbody > tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(Normalize(cells.Eq(0).Text()))
		cell := cells.Eq(1)
		val := Normalize(cell.Text())

		switch {
		case strings.Contains(key, "тип купона"):
			if val != "" {
				rec.CouponType = &val
			}
		case containsAny(key, couponRateKeys):
			if rate, ok := couponRate(cell, val); ok {
				rec.CouponRate = &rate
			}
		case strings.Contains(key, "валюта"):
			if code := currencyCode(val); code != "" {
				rec.Currency = &code
			}
		}
	})
}

// couponRate looks for a formula in the cell text, then in nested paragraphs,
// then in the line-break separated segments of the cell.
func couponRate(cell *goquery.Selection, val string) (string, bool) {
	if IsFormula(val) {
		return val, true
	}

	var found string
	cell.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if txt := Normalize(p.Text()); IsFormula(txt) {
			found = txt
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	for _, part := range strings.Split(lineText(cell), "\n") {
		if part = Normalize(part); IsFormula(part) {
			return part, true
		}
	}
	return "", false
}

func parseAmortization(doc *goquery.Document) *bool {
	var result *bool
	doc.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return true
		}
		if !strings.Contains(strings.ToLower(Normalize(cells.Eq(0).Text())), "амортиз") {
			return true
		}
		switch strings.ToLower(Normalize(cells.Eq(1).Text())) {
		case "да", "есть", "yes":
			v := true
			result = &v
		case "нет", "no", "-":
			v := false
			result = &v
		}
		return false
	})
	return result
}

// lineText renders the text of a selection with <br> elements as newlines.
func lineText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}

// currencyCode maps the page's currency label to an ISO code. Unknown labels
// are kept as written.
func currencyCode(label string) string {
	low := strings.ToLower(label)
	switch {
	case low == "":
		return ""
	case strings.Contains(low, "руб"), low == "rub", low == "sur":
		return "RUB"
	case strings.Contains(low, "доллар"), strings.Contains(low, "usd"):
		return "USD"
	case strings.Contains(low, "евро"), strings.Contains(low, "eur"):
		return "EUR"
	case strings.Contains(low, "юан"), strings.Contains(low, "cny"):
		return "CNY"
	}
	return strings.ToUpper(label)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
