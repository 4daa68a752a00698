package lifecycle

import "github.com/guarzo/crosslist/internal/model"

// Rules maps a platform name to its expiry policy. Platforms missing
// from the table behave like Days == 0 (never expire).
type Rules map[string]model.ExpiryRule

// DefaultRules returns the built-in policy table for the supported
// marketplaces. Days reflect each platform's natural listing duration;
// Renewable marks platforms whose API or UI allows relisting the same
// listing rather than creating a new one.
func DefaultRules() Rules {
	return Rules{
		"ebay":     {Days: 30, Renewable: true},
		"etsy":     {Days: 120, Renewable: true},
		"facebook": {Days: 30, Renewable: true},
		"depop":    {Days: 0, Renewable: false},
		"poshmark": {Days: 0, Renewable: false},
		"mercari":  {Days: 0, Renewable: false},
	}
}

// Rule looks up a platform's policy.
func (r Rules) Rule(platform string) (model.ExpiryRule, bool) {
	rule, ok := r[platform]
	return rule, ok
}

// Renewable reports whether a platform supports relisting. Unknown
// platforms are not renewable.
func (r Rules) Renewable(platform string) bool {
	rule, ok := r[platform]
	return ok && rule.Renewable
}
