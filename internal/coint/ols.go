package coint

import (
	"errors"
	"fmt"
	"math"
)

// ErrSingularRegression is returned when a regression design matrix is
// numerically degenerate.
var ErrSingularRegression = errors.New("singular regression")

// ErrInsufficientData is returned when a series is shorter than the stage
// minimum.
var ErrInsufficientData = errors.New("insufficient data for cointegration test")

// OLS fits y = alpha + beta*x + u with closed-form normal equations and
// returns the coefficients plus the residual series.
func OLS(y, x []float64) (alpha, beta float64, residuals []float64, err error) {
	n := float64(len(y))
	if len(y) != len(x) || len(y) < 3 {
		return 0, 0, nil, fmt.Errorf("%w: %d observations", ErrInsufficientData, len(y))
	}

	var sumX, sumY, sumXX, sumXY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXX += x[i] * x[i]
		sumXY += x[i] * y[i]
	}

	det := n*sumXX - sumX*sumX
	scale := n * sumXX
	if scale == 0 {
		scale = 1
	}
	if math.Abs(det) < 1e-12*scale {
		return 0, 0, nil, fmt.Errorf("%w: normal equations determinant near zero", ErrSingularRegression)
	}

	beta = (n*sumXY - sumX*sumY) / det
	alpha = (sumY - beta*sumX) / n

	residuals = make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - alpha - beta*x[i]
	}
	return alpha, beta, residuals, nil
}

// solveLeastSquares solves the normal equations of the regression y ~ X by
// pivoted Gauss-Jordan elimination and returns the coefficient vector, the
// inverse of X'X (for standard errors), and the residual sum of squares.
func solveLeastSquares(design [][]float64, y []float64) (coef []float64, xtxInv [][]float64, rss float64, err error) {
	rows := len(design)
	cols := len(design[0])

	xtx := make([][]float64, cols)
	xty := make([]float64, cols)
	for a := 0; a < cols; a++ {
		xtx[a] = make([]float64, cols)
		for b := 0; b < cols; b++ {
			sum := 0.0
			for i := 0; i < rows; i++ {
				sum += design[i][a] * design[i][b]
			}
			xtx[a][b] = sum
		}
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += design[i][a] * y[i]
		}
		xty[a] = sum
	}

	xtxInv, err = invertGaussJordan(xtx)
	if err != nil {
		return nil, nil, 0, err
	}

	coef = make([]float64, cols)
	for a := 0; a < cols; a++ {
		for b := 0; b < cols; b++ {
			coef[a] += xtxInv[a][b] * xty[b]
		}
	}

	for i := 0; i < rows; i++ {
		fitted := 0.0
		for a := 0; a < cols; a++ {
			fitted += design[i][a] * coef[a]
		}
		d := y[i] - fitted
		rss += d * d
	}
	return coef, xtxInv, rss, nil
}

// invertGaussJordan inverts a square matrix with partial pivoting. It fails
// when the best available pivot magnitude drops below 1e-14.
func invertGaussJordan(m [][]float64) ([][]float64, error) {
	n := len(m)

	// Augment [m | I].
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, 2*n)
		copy(aug[i], m[i])
		aug[i][n+i] = 1
	}

	for col := 0; col < n; col++ {
		// Pick the row with the largest pivot magnitude.
		pivotRow := col
		for r := col + 1; r < n; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = r
			}
		}
		pivot := aug[pivotRow][col]
		if math.Abs(pivot) < 1e-14 {
			return nil, fmt.Errorf("%w: pivot %g at column %d", ErrSingularRegression, pivot, col)
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		for j := 0; j < 2*n; j++ {
			aug[col][j] /= pivot
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	inv := make([][]float64, n)
	for i := 0; i < n; i++ {
		inv[i] = aug[i][n:]
	}
	return inv, nil
}
