package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/spf13/cobra"

	"github.com/calm3366/bond-portfolio/internal/model"
)

// Output writes command results as text or, with --json, as indented JSON.
type Output struct {
	writer   io.Writer
	jsonMode bool
}

// NewOutput creates an Output for cmd.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:   cmd.OutOrStdout(),
		jsonMode: jsonMode,
	}
}

// IsJSON reports whether --json was given.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON writes data as indented JSON.
func (o *Output) JSON(data any) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Printf writes formatted text.
func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

// Println writes a line.
func (o *Output) Println(args ...any) {
	fmt.Fprintln(o.writer, args...)
}

// FormatMoney renders amount in currency code with the currency's symbol and
// separators. Codes unknown to go-money are printed as "12.30 XYZ".
func FormatMoney(amount float64, code string) string {
	code = model.NormalizeCurrency(code)
	if money.GetCurrency(code) == nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	return money.NewFromFloat(amount, code).Display()
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func orDash(s *string) string {
	if v, ok := deref(s); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return "-"
}
