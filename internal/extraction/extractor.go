// Package extraction derives the numeric register value of a water or gas
// meter from a photo, using an external vision model.
package extraction

import "context"

// meterPrompt is the shared prompt used by all vision backends. Meter dials
// roll from 0 to 9 in ascending order; a half-rolled digit is read as the
// lower of the two candidates.
const meterPrompt = `You are reading the register of a water or gas utility meter. Extract the value shown on the meter as a single integer.

Each dial position is one digit. Digits roll from 0 to 9, always in ascending order. When a digit is caught between two numbers, consider which digits it could be and take the lower value.

Return ONLY the integer value, with no units, punctuation or surrounding text.`

// Extractor defines the interface for meter value extraction.
type Extractor interface {
	// ExtractValue analyzes a JPEG meter photo and returns the register value.
	ExtractValue(ctx context.Context, imageData []byte) (int, error)
	// Close releases the backend's resources.
	Close() error
}
