package marketplace

import "strings"

// Condition vocabulary mapping. Items store a small set of local
// condition strings; each marketplace wants its own codes. Unknown
// local conditions fall back to the platform's used/good code rather
// than failing the push.

var ebayConditions = map[string]string{
	"new":       "1000", // New with tags
	"like new":  "1500", // New other
	"excellent": "2990",
	"good":      "3000", // Used
	"fair":      "3000",
	"poor":      "7000", // For parts
}

var etsyConditions = map[string]string{
	"new":       "new",
	"like new":  "used_like_new",
	"excellent": "used_excellent",
	"good":      "used_good",
	"fair":      "used_fair",
	"poor":      "used_fair",
}

// ConditionCode translates a local condition string into the given
// platform's vocabulary. Platforms without a condition field get the
// local string back unchanged.
func ConditionCode(platform, condition string) string {
	key := strings.ToLower(strings.TrimSpace(condition))
	switch platform {
	case "ebay":
		if code, ok := ebayConditions[key]; ok {
			return code
		}
		return ebayConditions["good"]
	case "etsy":
		if code, ok := etsyConditions[key]; ok {
			return code
		}
		return etsyConditions["good"]
	default:
		return key
	}
}
