package symbolic

import (
	"fmt"
	"strings"
)

// Matrix is a dense row-major matrix of expressions.
type Matrix struct {
	rows, cols int
	data       []Expr
}

// NewMatrix returns a rows×cols matrix filled with 0.
func NewMatrix(rows, cols int) *Matrix {
	if rows < 0 || cols < 0 {
		panic("symbolic: negative matrix dimension")
	}
	data := make([]Expr, rows*cols)
	for i := range data {
		data[i] = N(0)
	}
	return &Matrix{rows: rows, cols: cols, data: data}
}

// MatrixFromRows builds a matrix from equally sized rows.
func MatrixFromRows(rows [][]Expr) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("symbolic: row %d has %d entries, want %d", i, len(r), cols)
		}
		for j, e := range r {
			m.Set(i, j, e)
		}
	}
	return m, nil
}

// Diagonal returns the square matrix with v on its diagonal.
func Diagonal(v []Expr) *Matrix {
	m := NewMatrix(len(v), len(v))
	for i, e := range v {
		m.Set(i, i, e)
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) *Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, N(1))
	}
	return m
}

func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }
func (m *Matrix) Rows() int              { return m.rows }
func (m *Matrix) Cols() int              { return m.cols }

func (m *Matrix) At(i, j int) Expr {
	m.check(i, j)
	return m.data[i*m.cols+j]
}

func (m *Matrix) Set(i, j int, e Expr) {
	m.check(i, j)
	m.data[i*m.cols+j] = e
}

func (m *Matrix) check(i, j int) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("symbolic: index (%d,%d) out of range for %dx%d matrix", i, j, m.rows, m.cols))
	}
}

func (m *Matrix) Row(i int) []Expr {
	out := make([]Expr, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

func (m *Matrix) Col(j int) []Expr {
	out := make([]Expr, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.At(i, j)
	}
	return out
}

func (m *Matrix) Clone() *Matrix {
	return &Matrix{rows: m.rows, cols: m.cols, data: append([]Expr(nil), m.data...)}
}

// AppendRow returns a copy of m with r appended as a new last row.
func (m *Matrix) AppendRow(r []Expr) (*Matrix, error) {
	if len(r) != m.cols {
		return nil, fmt.Errorf("symbolic: appended row has %d entries, want %d", len(r), m.cols)
	}
	return &Matrix{rows: m.rows + 1, cols: m.cols, data: append(append([]Expr(nil), m.data...), r...)}, nil
}

func (m *Matrix) Transpose() *Matrix {
	t := NewMatrix(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			t.Set(j, i, m.At(i, j))
		}
	}
	return t
}

// MulVec returns m·v.
func (m *Matrix) MulVec(v []Expr) []Expr {
	if len(v) != m.cols {
		panic(fmt.Sprintf("symbolic: MulVec length %d, want %d", len(v), m.cols))
	}
	out := make([]Expr, m.rows)
	for i := 0; i < m.rows; i++ {
		terms := make([]Expr, m.cols)
		for j := 0; j < m.cols; j++ {
			terms[j] = mulOf([]Expr{m.At(i, j), v[j]})
		}
		out[i] = addOf(terms)
	}
	return out
}

// Mul returns m·o.
func (m *Matrix) Mul(o *Matrix) *Matrix {
	if m.cols != o.rows {
		panic(fmt.Sprintf("symbolic: Mul shape %dx%d · %dx%d", m.rows, m.cols, o.rows, o.cols))
	}
	out := NewMatrix(m.rows, o.cols)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < o.cols; j++ {
			terms := make([]Expr, m.cols)
			for k := 0; k < m.cols; k++ {
				terms[k] = mulOf([]Expr{m.At(i, k), o.At(k, j)})
			}
			out.Set(i, j, addOf(terms))
		}
	}
	return out
}

// Scale returns s·m.
func (m *Matrix) Scale(s Expr) *Matrix {
	out := m.Clone()
	for i, e := range out.data {
		out.data[i] = mulOf([]Expr{s, e})
	}
	return out
}

// Sub returns m-o.
func (m *Matrix) Sub(o *Matrix) *Matrix {
	if m.rows != o.rows || m.cols != o.cols {
		panic("symbolic: Sub shape mismatch")
	}
	out := m.Clone()
	for i := range out.data {
		out.data[i] = Minus(m.data[i], o.data[i])
	}
	return out
}

// Map applies fn to every entry.
func (m *Matrix) Map(fn func(Expr) Expr) *Matrix {
	out := m.Clone()
	for i, e := range out.data {
		out.data[i] = fn(e)
	}
	return out
}

// IsDiagonal reports whether m is square with every off-diagonal entry the
// exact constant 0.
func (m *Matrix) IsDiagonal() bool {
	if m.rows != m.cols {
		return false
	}
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if i != j && !IsZero(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

// Equal reports entrywise structural equality.
func (m *Matrix) Equal(o *Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols {
		return false
	}
	return equalSlices(m.data, o.data)
}

func (m *Matrix) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < m.rows; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.At(i, j).String())
		}
	}
	b.WriteByte(']')
	return b.String()
}
