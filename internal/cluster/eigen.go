package cluster

import (
	"math"
	"sort"
)

// jacobiEigen computes the eigen-decomposition of a symmetric matrix with the
// cyclic Jacobi method. It returns the eigenvalues in descending order and the
// matching eigenvectors as rows-by-component columns: eigenvectors[j][i] is
// the weight of variable j in component i.
func jacobiEigen(matrix [][]float64) ([]float64, [][]float64) {
	n := len(matrix)

	// Work on a copy; the rotation loop destroys the off-diagonals.
	a := make([][]float64, n)
	for i := range a {
		a[i] = append([]float64(nil), matrix[i]...)
	}
	v := identity(n)

	const (
		maxSweeps = 100
		tolerance = 1e-12
	)
	for sweep := 0; sweep < maxSweeps; sweep++ {
		off := offDiagonalNorm(a)
		if off < tolerance {
			break
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < tolerance {
					continue
				}
				rotate(a, v, p, q)
			}
		}
	}

	// Extract and sort eigenpairs descending by eigenvalue.
	type pair struct {
		value  float64
		column int
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{value: a[i][i], column: i}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].value > pairs[j].value })

	values := make([]float64, n)
	vectors := make([][]float64, n)
	for j := range vectors {
		vectors[j] = make([]float64, n)
	}
	for i, p := range pairs {
		values[i] = p.value
		for j := 0; j < n; j++ {
			vectors[j][i] = v[j][p.column]
		}
	}
	return values, vectors
}

// rotate applies one Jacobi rotation zeroing a[p][q].
func rotate(a, v [][]float64, p, q int) {
	n := len(a)
	theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
	t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
	c := 1 / math.Sqrt(t*t+1)
	s := t * c

	app, aqq, apq := a[p][p], a[q][q], a[p][q]
	a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
	a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
	a[p][q] = 0
	a[q][p] = 0

	for i := 0; i < n; i++ {
		if i == p || i == q {
			continue
		}
		aip, aiq := a[i][p], a[i][q]
		a[i][p] = c*aip - s*aiq
		a[p][i] = a[i][p]
		a[i][q] = s*aip + c*aiq
		a[q][i] = a[i][q]
	}
	for i := 0; i < n; i++ {
		vip, viq := v[i][p], v[i][q]
		v[i][p] = c*vip - s*viq
		v[i][q] = s*vip + c*viq
	}
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

func offDiagonalNorm(a [][]float64) float64 {
	sum := 0.0
	for i := range a {
		for j := range a[i] {
			if i != j {
				sum += a[i][j] * a[i][j]
			}
		}
	}
	return math.Sqrt(sum)
}
