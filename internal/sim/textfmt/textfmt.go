// Package textfmt turns content identifiers into display labels.
package textfmt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Prettifier implements limits.TextFormatter.
type Prettifier struct {
	Tag language.Tag
}

func New() Prettifier { return Prettifier{Tag: language.English} }

// Prettify maps "IRON_GOLEM" to "Iron Golem". A Caser is not safe for
// concurrent use, so one is built per call.
func (p Prettifier) Prettify(id string) string {
	s := strings.Join(strings.Fields(strings.ReplaceAll(id, "_", " ")), " ")
	if s == "" {
		return ""
	}
	return cases.Title(p.Tag).String(s)
}
