package render

// Quality is a rendering quality preset. Values outside the known presets are
// legal and simply add no flag, leaving the renderer's own default in effect.
type Quality string

const (
	QualityLow        Quality = "low_quality"
	QualityMedium     Quality = "medium_quality"
	QualityHigh       Quality = "high_quality"
	QualityProduction Quality = "production_quality"
)

// DefaultQuality is used when a request leaves Quality empty.
const DefaultQuality = QualityMedium

var qualityFlags = map[Quality]string{
	QualityLow:        "-ql", // fast, low resolution
	QualityMedium:     "-qm", // 720p
	QualityHigh:       "-qh", // 1080p
	QualityProduction: "-qk", // 2K/4K, slow
}

// Flag returns the command-line flag for q and whether q is a known preset.
func (q Quality) Flag() (string, bool) {
	flag, ok := qualityFlags[q]
	return flag, ok
}

// Qualities lists the presets from fastest to slowest.
func Qualities() []Quality {
	return []Quality{QualityLow, QualityMedium, QualityHigh, QualityProduction}
}
