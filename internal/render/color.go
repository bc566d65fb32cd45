package render

import (
	"hash/fnv"
	"math"
)

// SourceColor maps a source id to a stable RGB color. Hue comes from the id
// hash; saturation and lightness are fixed so every source stays readable.
func SourceColor(sourceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourceID))
	hue := float64(h.Sum32() % 360)

	r, g, b := hslToRGB(hue, 0.65, 0.55)
	return r<<16 | g<<8 | b
}

func hslToRGB(h, s, l float64) (int, int, int) {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	to8 := func(v float64) int {
		return int(math.Round((v + m) * 255))
	}
	return to8(r), to8(g), to8(b)
}
