package config

// Layout describes how a file-backed stream partitions a source of known size.
type Layout struct {
	// Candidates is the number of complete raw windows in the source.
	Candidates uint64
	// Selected is the number of those windows the selector uses.
	Selected uint64
	// TrailingBits is the number of source bits from the first window that
	// is not complete to the end of the source.
	TrailingBits uint64
}

// DeriveLayout computes the layout of a source of size bytes under cfg,
// which is expected to be valid.
func DeriveLayout(cfg Config, size uint64) Layout {
	total := size * 8
	start := uint64(cfg.SkipBits) + uint64(cfg.SkipUnits)*uint64(cfg.UnitWidth)
	raw := uint64(cfg.Pregap) + uint64(cfg.UnitWidth) + uint64(cfg.Postgap)
	stride := raw + uint64(cfg.Gap)

	var layout Layout
	if total < start+raw {
		if total > start {
			layout.TrailingBits = total - start
		}
		return layout
	}

	layout.Candidates = (total-start-raw)/stride + 1
	if next := start + layout.Candidates*stride; total > next {
		layout.TrailingBits = total - next
	}

	skip := uint64(cfg.Skip)
	if layout.Candidates <= skip {
		return layout
	}
	layout.Selected = (layout.Candidates-skip-1)/(uint64(cfg.Step)+1) + 1
	if cfg.Limit != nil && layout.Selected > uint64(*cfg.Limit) {
		layout.Selected = uint64(*cfg.Limit)
	}
	return layout
}
