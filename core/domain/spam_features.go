package domain

// MessageInfo holds the six lexical statistics of a message that feed the
// neural ensemble alongside the Bayes probability.
type MessageInfo struct {
	UppercaseWords float64 `json:"uppercase_words"`
	NumberMarkers  float64 `json:"number_markers"`
	ContentSizeKB  float64 `json:"content_size_kb"`
	HTMLColors     float64 `json:"html_colors"`
	Emojis         float64 `json:"emojis"`
	UnknownRatio   float64 `json:"unknown_ratio"`
}

// FeatureInput is the result of preparing a message for the neural model.
type FeatureInput struct {
	Body string
	Info MessageInfo
}

// FeatureCount is the width of the neural model input.
const FeatureCount = 7

// FeatureVector is the ordered neural input:
// [uppercase, numbers, size_kb, colors, emojis, unknown_ratio, bayes_probability].
type FeatureVector [FeatureCount]float64

// NewFeatureVector assembles the ordered neural input.
func NewFeatureVector(bayesProbability float64, info MessageInfo) FeatureVector {
	return FeatureVector{
		info.UppercaseWords,
		info.NumberMarkers,
		info.ContentSizeKB,
		info.HTMLColors,
		info.Emojis,
		info.UnknownRatio,
		bayesProbability,
	}
}
