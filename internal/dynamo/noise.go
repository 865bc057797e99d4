package dynamo

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

type NoiseKind int

const (
	// DiagonalNoise drives each state with its own Wiener process.
	DiagonalNoise NoiseKind = iota
	// ScalarNoise drives every state with one shared process.
	ScalarNoise
	// GeneralNoise mixes Channels processes through a diffusion matrix.
	GeneralNoise
)

func (k NoiseKind) String() string {
	switch k {
	case DiagonalNoise:
		return "diagonal"
	case ScalarNoise:
		return "scalar"
	case GeneralNoise:
		return "general"
	}
	return "unknown"
}

// Noise tells a solver how many independent processes exist and how they
// reach the state derivatives. RatePrototype is nil unless Kind is
// GeneralNoise, where it is a zero *mat.Dense or a *SparsePattern with the
// diffusion matrix's shape.
type Noise struct {
	Kind          NoiseKind
	Channels      int
	RatePrototype mat.Matrix
}

// SparsePattern is the structural non-zero pattern of a matrix. At returns
// 1 on the pattern and 0 elsewhere.
type SparsePattern struct {
	rows, cols int
	nz         map[[2]int]struct{}
}

func NewSparsePattern(rows, cols int, nonZero [][2]int) *SparsePattern {
	sp := &SparsePattern{rows: rows, cols: cols, nz: make(map[[2]int]struct{}, len(nonZero))}
	for _, ij := range nonZero {
		if ij[0] < 0 || ij[0] >= rows || ij[1] < 0 || ij[1] >= cols {
			panic(mat.ErrIndexOutOfRange)
		}
		sp.nz[ij] = struct{}{}
	}
	return sp
}

func (sp *SparsePattern) Dims() (r, c int) { return sp.rows, sp.cols }

func (sp *SparsePattern) At(i, j int) float64 {
	if i < 0 || i >= sp.rows || j < 0 || j >= sp.cols {
		panic(mat.ErrIndexOutOfRange)
	}
	if _, ok := sp.nz[[2]int{i, j}]; ok {
		return 1
	}
	return 0
}

func (sp *SparsePattern) T() mat.Matrix { return mat.Transpose{Matrix: sp} }

func (sp *SparsePattern) NNZ() int { return len(sp.nz) }

// NonZero returns the pattern positions in row-major order.
func (sp *SparsePattern) NonZero() [][2]int {
	out := make([][2]int, 0, len(sp.nz))
	for ij := range sp.nz {
		out = append(out, ij)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a][0] != out[b][0] {
			return out[a][0] < out[b][0]
		}
		return out[a][1] < out[b][1]
	})
	return out
}
