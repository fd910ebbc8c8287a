package corpbonds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/calm3366/bond-portfolio/internal/apperrors"
)

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/bond_page.html")
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	return data
}

func parseFixture(t *testing.T, page string, isOFZ bool) Record {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Failed to parse HTML: %v", err)
	}
	return Parse(doc, isOFZ)
}

// characteristicsPage wraps rows in the page layout of the characteristics table.
func characteristicsPage(rows ...string) string {
	return `<html><body><div id="root"><main><section><main>` +
		`<article><table><tbody></tbody></table></article>` +
		`<article><table><tbody>` + strings.Join(rows, "") + `</tbody></table></article>` +
		`</main></section></main></div></body></html>`
}

// TestIsFormula tests floating coupon formula detection.
//
// WHY: A coupon cell can hold a formula, a plain number or, on some pages, a
// rating that happens to mention a key-rate word. Only genuine formulas may be
// stored as the coupon description.
func TestIsFormula(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"КС + 2,5%", true},
		{"kc+1.5", true},
		{"RUONIA + 1,2%", true},
		{"MosPrime 3M + 0,8%", true},
		{"Ключевая ставка + 3%", true},
		{"АКРА ключевая", false},
		{"КС, рейтинг Эксперт РА", false},
		{"НКР КС", false},
		{"12,5%", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsFormula(tt.in); got != tt.want {
			t.Errorf("IsFormula(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestExtractNumber tests number extraction from page text.
//
// WHY: Prices are rendered with space thousands separators, non-breaking
// spaces and decimal commas; a failed read must yield nil rather than an error.
func TestExtractNumber(t *testing.T) {
	t.Run("parses grouped number with decimal comma", func(t *testing.T) {
		got := ExtractNumber("1 234,56")
		if got == nil || *got != 1234.56 {
			t.Fatalf("ExtractNumber() = %v, want 1234.56", got)
		}
	})

	t.Run("reads non-breaking thousands separator", func(t *testing.T) {
		for _, raw := range []string{"1\u00a0234,56 ₽", "1\u202f234,56 ₽"} {
			got := ExtractNumber(raw)
			if got == nil || *got != 1234.56 {
				t.Fatalf("ExtractNumber(%q) = %v, want 1234.56", raw, got)
			}
		}
	})

	t.Run("gives same result before and after normalization", func(t *testing.T) {
		raw := "1\u00a0234,56 ₽"
		before := ExtractNumber(raw)
		after := ExtractNumber(Normalize(raw))
		if before == nil || after == nil || *before != *after {
			t.Errorf("Expected equal results, got %v and %v", before, after)
		}
	})

	t.Run("skips leading text", func(t *testing.T) {
		got := ExtractNumber("Цена: 98,7 %")
		if got == nil || *got != 98.7 {
			t.Fatalf("ExtractNumber() = %v, want 98.7", got)
		}
	})

	t.Run("returns nil without digits", func(t *testing.T) {
		if got := ExtractNumber("нет данных"); got != nil {
			t.Errorf("Expected nil, got %v", *got)
		}
	})

	t.Run("returns nil for unparseable run", func(t *testing.T) {
		if got := ExtractNumber("1,2,3"); got != nil {
			t.Errorf("Expected nil, got %v", *got)
		}
	})
}

func TestNormalize(t *testing.T) {
	got := Normalize("  ∑ 1 000   руб \n ")
	if got != "1 000 руб" {
		t.Errorf("Normalize() = %q, want %q", got, "1 000 руб")
	}
}

// TestParse tests extraction of every field from a full bond page.
//
// WHY: Each field has its own selector and fallback; this ensures they are
// wired to the right rows and that the line-break tier of the coupon chain
// finds a formula hidden behind a rating mention.
func TestParse(t *testing.T) {
	page := string(loadFixture(t))

	t.Run("extracts all fields for OFZ page", func(t *testing.T) {
		rec := parseFixture(t, page, true)

		if rec.LastPrice == nil || *rec.LastPrice != 1012.35 {
			t.Errorf("LastPrice = %v, want 1012.35", rec.LastPrice)
		}
		if rec.YTM == nil || *rec.YTM != 14.25 {
			t.Errorf("YTM = %v, want 14.25", rec.YTM)
		}
		if rec.CouponType == nil || *rec.CouponType != "Плавающий" {
			t.Errorf("CouponType = %v, want Плавающий", rec.CouponType)
		}
		if rec.CouponRate == nil || *rec.CouponRate != "КС + 3%" {
			t.Errorf("CouponRate = %v, want КС + 3%%", rec.CouponRate)
		}
		if rec.Currency == nil || *rec.Currency != "RUB" {
			t.Errorf("Currency = %v, want RUB", rec.Currency)
		}
		if rec.Amortization == nil || !*rec.Amortization {
			t.Errorf("Amortization = %v, want true", rec.Amortization)
		}
	})

	t.Run("skips YTM for non-OFZ page", func(t *testing.T) {
		rec := parseFixture(t, page, false)
		if rec.YTM != nil {
			t.Errorf("Expected nil YTM, got %v", *rec.YTM)
		}
	})

	t.Run("splits rating and forecast", func(t *testing.T) {
		rec := parseFixture(t, page, false)

		if rec.AKRA.Rating == nil || *rec.AKRA.Rating != "A+(RU)" {
			t.Errorf("AKRA rating = %v, want A+(RU)", rec.AKRA.Rating)
		}
		if rec.AKRA.Forecast == nil || *rec.AKRA.Forecast != "стабильный" {
			t.Errorf("AKRA forecast = %v, want стабильный", rec.AKRA.Forecast)
		}
		if rec.RAExpert.Rating == nil || *rec.RAExpert.Rating != "ruA+" {
			t.Errorf("RAExpert rating = %v, want ruA+", rec.RAExpert.Rating)
		}
		if rec.RAExpert.Forecast == nil || *rec.RAExpert.Forecast != "позитивный" {
			t.Errorf("RAExpert forecast = %v, want позитивный", rec.RAExpert.Forecast)
		}
		if rec.NKR.Rating != nil {
			t.Errorf("Expected nil NKR rating, got %v", *rec.NKR.Rating)
		}
	})

	t.Run("falls back to document-wide formula", func(t *testing.T) {
		stripped := strings.Replace(page, "<tr><td>Ставка купона</td><td>см. рейтинг НКР<br>КС + 3%</td></tr>", "", 1)
		rec := parseFixture(t, stripped, false)
		if rec.CouponRate == nil || *rec.CouponRate != "ключевая ставка + 1,9%" {
			t.Errorf("CouponRate = %v, want document-wide formula", rec.CouponRate)
		}
	})

	t.Run("unknown amortization when row missing", func(t *testing.T) {
		stripped := strings.Replace(page, "<tr><td>Амортизация</td><td>Да</td></tr>", "", 1)
		rec := parseFixture(t, stripped, false)
		if rec.Amortization != nil {
			t.Errorf("Expected nil amortization, got %v", *rec.Amortization)
		}
	})

	t.Run("reads formula from nested paragraph", func(t *testing.T) {
		rec := parseFixture(t, characteristicsPage(
			`<tr><td>Ставка купона</td><td>Рейтинг НКР<p>КС + 2,5%</p></td></tr>`,
		), false)
		if rec.CouponRate == nil || *rec.CouponRate != "КС + 2,5%" {
			t.Errorf("CouponRate = %v, want КС + 2,5%%", rec.CouponRate)
		}
	})

	t.Run("reads negative amortization", func(t *testing.T) {
		for _, cell := range []string{"Нет", "-"} {
			rec := parseFixture(t, characteristicsPage(
				`<tr><td>Амортизация</td><td>`+cell+`</td></tr>`,
			), false)
			if rec.Amortization == nil || *rec.Amortization {
				t.Errorf("Amortization for %q = %v, want false", cell, rec.Amortization)
			}
		}
	})

, func(t *testing.T) {
		rec := parseFixture(t, "<html><body><p>nothing</p></body></html>", true)
		if !rec.Empty() {
			t.Errorf("Expected empty record, got %+v", rec)
		}
	})
}

// TestClient_Fetch tests the HTTP adapter.
//
// WHY: A refresh must be able to tell "the page said nothing" from "the site
// failed"; transport and status failures are returned as provider errors.
func TestClient_Fetch(t *testing.T) {
	page := loadFixture(t)

	t.Run("fetches and parses page by code", func(t *testing.T) {
		var gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(page)
		}))
		defer srv.Close()

		client := NewClient(srv.URL+"/", 0)
		rec, err := client.Fetch(context.Background(), "RU000A0JX0J2", false)
		if err != nil {
			t.Fatalf("Fetch() returned unexpected error: %v", err)
		}
		if gotPath != "/bond/RU000A0JX0J2" {
			t.Errorf("Unexpected request path %q", gotPath)
		}
		if rec.LastPrice == nil {
			t.Error("Expected parsed price")
		}
	})

	t.Run("returns status error on non-2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, 0).Fetch(context.Background(), "SU26238RMFS4", true)
		if !errors.Is(err, apperrors.ErrProviderStatus) {
			t.Errorf("Expected ErrProviderStatus, got %v", err)
		}
	})

	t.Run("returns unavailable error when site is down", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := NewClient(url, 0).Fetch(context.Background(), "X", false)
		if !errors.Is(err, apperrors.ErrProviderUnavailable) {
			t.Errorf("Expected ErrProviderUnavailable, got %v", err)
		}
	})
}
