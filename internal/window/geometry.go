package window

// Geometry maps a scale percentage to a window size.
type Geometry struct {
	BaseWidth  int
	BaseHeight int
	MinScale   int
	MaxScale   int
}

// DefaultGeometry is a 360x760 widget scalable from 70% to 300%.
var DefaultGeometry = Geometry{BaseWidth: 360, BaseHeight: 760, MinScale: 70, MaxScale: 300}

// ClampScale limits scale to the allowed range.
func (g Geometry) ClampScale(scale int) int {
	return max(g.MinScale, min(g.MaxScale, scale))
}

// SizeFor returns the rounded size at scale percent.
func (g Geometry) SizeFor(scale int) Size {
	scale = g.ClampScale(scale)
	return Size{
		Width:  (g.BaseWidth*scale + 50) / 100,
		Height: (g.BaseHeight*scale + 50) / 100,
	}
}
