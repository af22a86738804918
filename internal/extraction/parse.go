package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// parseMeterValue extracts the meter register value from a model response.
// Backends occasionally wrap the answer in markdown fences or prose, so the
// first number anywhere in the text wins; decimals are truncated.
func parseMeterValue(text string) (int, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	match := numberPattern.FindString(text)
	if match == "" {
		return 0, fmt.Errorf("no numeric value found in response: %q", text)
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing value %q: %w", match, err)
	}
	return int(value), nil
}
