package extract

import "unicode"

// Quality classifies a page's native text layer. Only QualityGood is
// accepted without OCR.
type Quality string

const (
	QualityEmpty   Quality = "empty"
	QualityVeryLow Quality = "very_low"
	QualityLow     Quality = "low"
	QualityMedium  Quality = "medium"
	QualityGood    Quality = "good"
)

// NeedsOCR reports whether this quality class triggers the OCR
// fallback.
func (q Quality) NeedsOCR() bool {
	return q != QualityGood
}

// Quality thresholds. Pages with fewer characters than these, or with a
// higher share of special characters, are assumed to carry a broken or
// missing text layer.
const (
	veryLowCharCount   = 50
	lowCharCount       = 200
	lowSpecialRatio    = 0.30
	mediumSpecialRatio = 0.15
)

// AssessQuality classifies extracted page text from its character count
// and the ratio of non-alphanumeric, non-space characters.
func AssessQuality(text string) Quality {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return QualityEmpty
	}

	special := 0
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	ratio := float64(special) / float64(total)

	switch {
	case total < veryLowCharCount:
		return QualityVeryLow
	case total < lowCharCount || ratio > lowSpecialRatio:
		return QualityLow
	case ratio > mediumSpecialRatio:
		return QualityMedium
	default:
		return QualityGood
	}
}
