package domain

type PatternCategory string

const (
	PatternBullish PatternCategory = "bullish"
	PatternBearish PatternCategory = "bearish"
	PatternNeutral PatternCategory = "neutral"
)

type PatternOrigin string

const (
	OriginBuiltin  PatternOrigin = "builtin"
	OriginExternal PatternOrigin = "external"
)

// Pattern is a single detector hit. Transient, produced per evaluation.
type Pattern struct {
	Name       string          `json:"name"`
	Category   PatternCategory `json:"category"`
	Confidence float64         `json:"confidence"` // 0..100
	Origin     PatternOrigin   `json:"origin"`
}

type FusionKind string

const (
	FusionBullish  FusionKind = "fusion_bullish"
	FusionBearish  FusionKind = "fusion_bearish"
	FusionConflict FusionKind = "conflict"
)

// FusionSignal is a combined directional conclusion that requires agreement
// between candlestick and chart pattern families.
type FusionSignal struct {
	Kind               FusionKind `json:"kind"`
	Confidence         float64    `json:"confidence"`
	SupportingPatterns []string   `json:"supporting_patterns"`
}
