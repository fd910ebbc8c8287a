package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error collects per-field validation messages. Handlers return Fields as the
// "details" of a 400 response.
type Error struct {
	Fields map[string]string
}

// Error joins the field messages in field order.
func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, field := range names {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}
