package imaging

// Preset is a fixed window applied to Hounsfield data.
type Preset struct {
	Name  string
	Level int
	Width int
}

var (
	PresetLung = Preset{Name: "lung", Level: -400, Width: 1500}
	PresetBone = Preset{Name: "bone", Level: 300, Width: 1500}
	PresetSoft = Preset{Name: "soft", Level: 55, Width: 435}
)

// Presets are applied independently to every frame, in this order.
var Presets = []Preset{PresetLung, PresetBone, PresetSoft}

// Bounds returns the window interval, level +/- half the width with
// integer halving on both sides.
func (p Preset) Bounds() (int, int) {
	return p.Level - p.Width/2, p.Level + p.Width/2
}

// Apply clips HU values to the window, rescales linearly to [0,255] and
// truncates to 8-bit. The input slice is not modified.
func (p Preset) Apply(hu []float64) []uint8 {
	min, max := p.Bounds()
	lo := float64(min)
	hi := float64(max)
	span := hi - lo

	out := make([]uint8, len(hu))
	for i, v := range hu {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		out[i] = uint8((v - lo) / span * 255)
	}
	return out
}
