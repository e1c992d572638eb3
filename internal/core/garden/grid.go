package garden

// Grid is a square plane of Size world units split into Segments cells per
// axis, centred on the origin. Vertices are ordered row by row starting at the
// +Y edge, each row running from -X to +X.
type Grid struct {
	Size     float64 `json:"size"`
	Segments int     `json:"segments"`
}

// Len is the vertex count, (Segments+1)².
func (g Grid) Len() int {
	side := g.Segments + 1
	return side * side
}

// Vertex returns the planar coordinates of vertex i.
func (g Grid) Vertex(i int) (x, y float64) {
	side := g.Segments + 1
	ix := i % side
	iy := i / side
	step := g.Size / float64(g.Segments)
	half := g.Size / 2
	return float64(ix)*step - half, half - float64(iy)*step
}

// Index returns the vertex index of column ix, row iy.
func (g Grid) Index(ix, iy int) int {
	return iy*(g.Segments+1) + ix
}
