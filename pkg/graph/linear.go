package graph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveLinear solves eff = direct + M·eff as (I - M)·eff = direct. The
// result equals the limit of the fixed-point iteration whenever that limit
// exists.
func solveLinear(sys *system) ([]float64, error) {
	n := len(sys.companies)
	if n == 0 {
		return nil, nil
	}

	a := mat.NewDense(n, n, nil)
	for i := range n {
		a.Set(i, i, 1)
		for _, l := range sys.links[i] {
			a.Set(i, l.to, a.At(i, l.to)-l.weight)
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), sys.direct...))

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSingularSystem, err)
	}

	eff := make([]float64, n)
	for i := range n {
		v := x.AtVec(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite solution", ErrSingularSystem)
		}
		eff[i] = v
	}
	return eff, nil
}
