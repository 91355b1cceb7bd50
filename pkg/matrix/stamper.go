package matrix

// Stamper accumulates entries of one small per-voxel operator block.
type Stamper interface {
	AddElement(i, j int, value complex128) // 0-based indexing
}

// denseStamper stamps into a row-major n×n slice.
type denseStamper struct {
	n    int
	data []complex128
}

func (s denseStamper) AddElement(i, j int, value complex128) {
	s.data[i*s.n+j] += value
}
