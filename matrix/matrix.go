// Package matrix implements the dense 2-D algebra the classifier is built on.
//
// A Matrix is a fixed-shape, value-semantics view over a gonum dense matrix:
// every operation allocates and returns a fresh Matrix and never mutates its
// operands, so weight matrices can be replaced wholesale without aliasing
// surprises. The zero Matrix is the empty matrix; Add and Sub treat an empty
// right-hand operand as the identity, which is how gradient sums start out
// before the first example of a batch lands.
//
// Shape violations are precondition failures and panic with mat.ErrShape,
// following gonum's own convention. Callers that need an error instead can
// wrap the call with mat.Maybe.
package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Gaussian yields standard-normal variates. *math/rand.Rand satisfies it;
// random.File provides a deterministic file-backed implementation for
// debugging.
type Gaussian interface {
	NormFloat64() float64
}

// Matrix is a dense rows×cols matrix of float64. The zero value is the empty
// matrix, usable only as the identity operand of Add and Sub.
type Matrix struct {
	d *mat.Dense
}

// New builds a rows×cols matrix from data in row-major order. A nil data
// slice gives an all-zero matrix; otherwise len(data) must be rows*cols.
func New(rows, cols int, data []float64) Matrix {
	return Matrix{d: mat.NewDense(rows, cols, data)}
}

// Column builds an n×1 column vector from values.
func Column(values []float64) Matrix {
	n := len(values)
	m := mat.NewDense(n, 1, nil)
	for i, v := range values {
		m.Set(i, 0, v)
	}
	return Matrix{d: m}
}

// NewGaussian builds a rows×cols matrix with every element drawn
// independently from N(0, stddev²) using src. Weight initialisation calls
// this with stddev = 1/sqrt(fanIn) to keep weighted sums out of the sigmoid's
// saturated tails.
func NewGaussian(rows, cols int, stddev float64, src Gaussian) Matrix {
	m := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, src.NormFloat64()*stddev)
		}
	}
	return Matrix{d: m}
}

// IsEmpty reports whether m is the zero (empty) matrix.
func (m Matrix) IsEmpty() bool { return m.d == nil }

// Rows returns the number of rows. The empty matrix has 0 rows.
func (m Matrix) Rows() int {
	if m.d == nil {
		return 0
	}
	r, _ := m.d.Dims()
	return r
}

// Cols returns the number of columns. The empty matrix has 0 columns.
func (m Matrix) Cols() int {
	if m.d == nil {
		return 0
	}
	_, c := m.d.Dims()
	return c
}

// Dims returns (rows, cols).
func (m Matrix) Dims() (int, int) {
	if m.d == nil {
		return 0, 0
	}
	return m.d.Dims()
}

// Size returns the total element count, rows*cols.
func (m Matrix) Size() int {
	r, c := m.Dims()
	return r * c
}

// At returns the element at (i, j). Out-of-range indices panic.
func (m Matrix) At(i, j int) float64 { return m.d.At(i, j) }

// Mul returns the matrix product m·b. Requires m.Cols() == b.Rows(); the
// result is m.Rows()×b.Cols().
func (m Matrix) Mul(b Matrix) Matrix {
	var out mat.Dense
	out.Mul(m.d, b.d)
	return Matrix{d: &out}
}

// Scale returns m with every element multiplied by k.
func (m Matrix) Scale(k float64) Matrix {
	var out mat.Dense
	out.Scale(k, m.d)
	return Matrix{d: &out}
}

// MulElem returns the elementwise (Hadamard) product of m and b. The shapes
// must match.
func (m Matrix) MulElem(b Matrix) Matrix {
	var out mat.Dense
	out.MulElem(m.d, b.d)
	return Matrix{d: &out}
}

// Add returns m + b. An empty b is the identity and returns m unchanged;
// otherwise the shapes must match.
func (m Matrix) Add(b Matrix) Matrix {
	if b.d == nil {
		return m
	}
	if m.d == nil {
		return b
	}
	var out mat.Dense
	out.Add(m.d, b.d)
	return Matrix{d: &out}
}

// Sub returns m − b. An empty b is the identity and returns m unchanged;
// otherwise the shapes must match.
func (m Matrix) Sub(b Matrix) Matrix {
	if b.d == nil {
		return m
	}
	var out mat.Dense
	out.Sub(m.d, b.d)
	return Matrix{d: &out}
}

// Apply returns the matrix obtained by applying f to every element of m.
func (m Matrix) Apply(f func(float64) float64) Matrix {
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return f(v) }, m.d)
	return Matrix{d: &out}
}

// T returns the materialized transpose of m, a Cols()×Rows() matrix.
func (m Matrix) T() Matrix {
	var out mat.Dense
	out.CloneFrom(m.d.T())
	return Matrix{d: &out}
}

// ArgMax returns the (row, col) of the largest element. Comparison is strict,
// so ties resolve to the first occurrence in row-major order.
func (m Matrix) ArgMax() (int, int) {
	rows, cols := m.d.Dims()
	maxRow, maxCol := 0, 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if m.d.At(i, j) > m.d.At(maxRow, maxCol) {
				maxRow, maxCol = i, j
			}
		}
	}
	return maxRow, maxCol
}

// Equal reports whether m and b have the same shape and identical elements.
func (m Matrix) Equal(b Matrix) bool {
	if m.d == nil || b.d == nil {
		return m.d == nil && b.d == nil
	}
	return mat.Equal(m.d, b.d)
}

// RawRowMajor copies the elements of m into a new slice in row-major order.
// Used by the weight codec, which stores matrices flat.
func (m Matrix) RawRowMajor() []float64 {
	rows, cols := m.d.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		out = append(out, m.d.RawRowView(i)...)
	}
	return out
}
