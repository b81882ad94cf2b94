package estimate

import "strings"

// Method is the coarse generation-tier bucket derived from a model
// identifier. Timing history and linear parameters are keyed by Method.
type Method string

const (
	MethodFlash   Method = "flash"
	MethodPro     Method = "pro"
	MethodUltra   Method = "ultra"
	MethodDefault Method = "default"
)

// Methods lists every known method tag, default last.
var Methods = []Method{MethodFlash, MethodPro, MethodUltra, MethodDefault}

// Classify maps a model identifier to its Method by case-insensitive
// substring match. "ultra" takes priority over "pro" over "flash"; an empty
// identifier or no match yields MethodDefault.
// Parameters:
//   - modelID: opaque model identifier, may be empty.
// Returns:
//   - Method: classified generation tier.
func Classify(modelID string) Method {
	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "ultra"):
		return MethodUltra
	case strings.Contains(id, "pro"):
		return MethodPro
	case strings.Contains(id, "flash"):
		return MethodFlash
	default:
		return MethodDefault
	}
}
