package game

// Score accumulates points per color.
type Score struct {
	points [4]int
}

func (s *Score) Add(c Color, n int) {
	if int(c) < len(s.points) {
		s.points[c] += n
	}
}

func (s Score) Of(c Color) int {
	if int(c) < len(s.points) {
		return s.points[c]
	}
	return 0
}

// Map returns the points of the given sides keyed by color.
func (s Score) Map(sides ...Color) map[Color]int {
	out := make(map[Color]int, len(sides))
	for _, c := range sides {
		out[c] = s.Of(c)
	}
	return out
}

// ScoreFromMap rebuilds a Score from its serialized form.
func ScoreFromMap(m map[Color]int) Score {
	var s Score
	for c, n := range m {
		s.Add(c, n)
	}
	return s
}
