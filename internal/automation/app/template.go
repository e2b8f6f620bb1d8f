package app

import (
	"strconv"
	"strings"

	"github.com/toddhamam/members-automation/internal/automation/domain"
)

// tokenResolvers is the closed set of template tokens and the context field
// each one renders. A token whose source value is absent is deliberately left
// verbatim in the output so a misconfigured template fails visibly in the
// message instead of silently dropping content.
var tokenResolvers = map[string]func(tc *domain.TriggerContext) (string, bool){
	"{{member_name}}": func(tc *domain.TriggerContext) (string, bool) {
		return tc.RecipientName, tc.RecipientName != ""
	},
	"{{member_first_name}}": func(tc *domain.TriggerContext) (string, bool) {
		return tc.RecipientFirstName, tc.RecipientFirstName != ""
	},
	"{{product_name}}": func(tc *domain.TriggerContext) (string, bool) {
		return tc.ProductName, tc.ProductName != ""
	},
	"{{progress_percent}}": func(tc *domain.TriggerContext) (string, bool) {
		if tc.ProgressPercent == nil {
			return "", false
		}
		return strconv.Itoa(*tc.ProgressPercent), true
	},
	"{{days_since_join}}": func(tc *domain.TriggerContext) (string, bool) {
		if tc.DaysSinceJoin == nil {
			return "", false
		}
		return strconv.Itoa(*tc.DaysSinceJoin), true
	},
}

// RenderTemplate substitutes every occurrence of the known tokens with their
// value from the enriched context. Unknown tokens and tokens without a source
// value pass through untouched.
func RenderTemplate(template string, tc *domain.TriggerContext) string {
	out := template
	for token, resolve := range tokenResolvers {
		if value, ok := resolve(tc); ok {
			out = strings.ReplaceAll(out, token, value)
		}
	}
	return out
}
