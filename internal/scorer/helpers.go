package scorer

import (
	"strconv"
	"strings"
)

// signalValue extracts the value of a "key=value" entry from a
// QualitativeScore's Signals slice, as produced by llmorch's schema
// folding. Returns "" if the key isn't present.
func signalValue(signals []string, key string) string {
	prefix := key + "="
	for _, s := range signals {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return ""
}

func hasSignal(signals []string, key string) bool {
	return signalValue(signals, key) != ""
}

// parseFloatSignal parses a numeric "key=value" signal, returning 0 if
// absent or malformed.
func parseFloatSignal(signals []string, key string) float64 {
	v, err := strconv.ParseFloat(signalValue(signals, key), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseBoolSignal(signals []string, key string) bool {
	return signalValue(signals, key) == "true"
}
