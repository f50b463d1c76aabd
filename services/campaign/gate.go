package campaign

import "fmt"

// GateResult is the outcome of the publishability check. Reasons are
// user-facing sentences, one per violation.
type GateResult struct {
	Publishable bool     `json:"publishable"`
	Reasons     []string `json:"reasons"`
}

// CheckPublishable collects every reason a campaign cannot go live yet. It
// never mutates the campaign and never short-circuits, so the UI can show
// the full punch list at once.
//
// Market assignment on variants is enforced here and not in the validator:
// a draft may carry market-less variants indefinitely, but none may publish.
func CheckPublishable(c *Campaign) GateResult {
	var reasons []string

	if len(c.ChannelList()) == 0 {
		reasons = append(reasons, "At least one channel must be selected before publishing.")
	}

	result := ValidateConfig(c.Type, c.Config)
	if !result.Valid {
		reasons = append(reasons, "Content configuration is invalid.")
		reasons = append(reasons, result.Errors...)
	}

	variants, isVariantForm, err := ExtractVariants(c.Config)
	if err == nil && isVariantForm {
		seen := make(map[string]bool, len(variants))
		for i, v := range variants {
			if v.Market == "" {
				reasons = append(reasons, fmt.Sprintf("Variant #%d must have a market assigned.", i+1))
				continue
			}
			if seen[v.Market] {
				reasons = append(reasons, fmt.Sprintf("Duplicate market across variants: %s", v.Market))
				continue
			}
			seen[v.Market] = true
		}
	}

	return GateResult{Publishable: len(reasons) == 0, Reasons: reasons}
}
