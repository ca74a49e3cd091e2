// Package linalg hands column-major host arrays to gonum without copying.
//
// A column-major n0 x n1 array has the same memory as a row-major n1 x n0
// matrix, so every adapter here works on the transposed row-major view.
package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/mdarray/internal/mdarray"
)

// Matrix returns a gonum view of a's host storage. Element (i, j) of the
// result is the element at zero-based position (i, j) of a, whatever the
// array's lower bounds are. Writes through the view reach the array.
func Matrix(a *mdarray.Array[float64, mdarray.R2]) (mat.Matrix, error) {
	rm, err := transposed(a)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rm.Rows, rm.Cols, rm.Data).T(), nil
}

// Gemm computes c = alpha*a*b + beta*c on host storage.
// a is m x k, b is k x n and c is m x n; other shapes fail with ErrSizeMismatch.
func Gemm(alpha float64, a, b *mdarray.Array[float64, mdarray.R2], beta float64, c *mdarray.Array[float64, mdarray.R2]) error {
	m, k, n := a.Dim(0).Size(), a.Dim(1).Size(), b.Dim(1).Size()
	if b.Dim(0).Size() != k || c.Dim(0).Size() != m || c.Dim(1).Size() != n {
		return fmt.Errorf("linalg: gemm %dx%d by %dx%d into %dx%d: %w",
			m, k, b.Dim(0).Size(), n, c.Dim(0).Size(), c.Dim(1).Size(), mdarray.ErrSizeMismatch)
	}
	if m == 0 || n == 0 {
		return nil
	}
	ct, err := transposed(c)
	if err != nil {
		return err
	}
	if k == 0 {
		for i := range ct.Data {
			ct.Data[i] *= beta
		}
		return nil
	}
	at, err := transposed(a)
	if err != nil {
		return err
	}
	bt, err := transposed(b)
	if err != nil {
		return err
	}
	// (AB)^T = B^T A^T, and the transposes are what the row-major views hold.
	blas64.Gemm(blas.NoTrans, blas.NoTrans, alpha, bt, at, beta, ct)
	return nil
}

// transposed describes a's host storage as a row-major n1 x n0 matrix.
func transposed(a *mdarray.Array[float64, mdarray.R2]) (blas64.General, error) {
	if a.Size() == 0 {
		return blas64.General{}, mdarray.ErrNotShaped
	}
	host := a.Host()
	if host == nil {
		return blas64.General{}, fmt.Errorf("linalg: %q has no host representation: %w", a.Label(), mdarray.ErrSizeMismatch)
	}
	n0, n1 := a.Dim(0).Size(), a.Dim(1).Size()
	return blas64.General{Rows: n1, Cols: n0, Stride: n0, Data: host}, nil
}
