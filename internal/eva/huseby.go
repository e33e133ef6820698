package eva

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Contour2D holds one environmental contour per probability level: column p
// of X and Y is the contour polygon for Prob[p], indexed by the Theta angles.
type Contour2D struct {
	Theta []float64 // radians, ntheta equally spaced angles in [0, 2pi)
	Prob  []float64
	X, Y  *mat.Dense // ntheta x len(Prob)
}

// Contour3D holds one contour surface per probability level. Rows run over
// the directional grid (azimuth x elevation restricted to the canonical
// quarter-sphere).
type Contour3D struct {
	Theta   []float64
	Prob    []float64
	X, Y, Z *mat.Dense // ncdir x len(Prob)
}

// husebyTransform is the normalization applied before directional quantiles
// are taken: per-column standardization followed by whitening with the
// Cholesky factor of the empirical correlation matrix.
type husebyTransform struct {
	mean, std []float64
	l         *mat.TriDense // lower Cholesky factor of the correlation
	white     *mat.Dense    // whitened sample, n x m
}

func newHusebyTransform(data *mat.Dense) (*husebyTransform, error) {
	n, m := data.Dims()

	t := &husebyTransform{
		mean:  make([]float64, m),
		std:   make([]float64, m),
		white: mat.NewDense(n, m, nil),
	}
	for j := 0; j < m; j++ {
		col := mat.Col(nil, j, data)
		t.mean[j] = stat.Mean(col, nil)
		// N-1 denominator, matching common statistical software.
		t.std[j] = stat.StdDev(col, nil)
		if t.std[j] == 0 {
			return nil, fmt.Errorf("huseby: column %d has zero variance", j)
		}
		for i := 0; i < n; i++ {
			t.white.Set(i, j, (data.At(i, j)-t.mean[j])/t.std[j])
		}
	}

	// Correlation of the standardized sample, Q = Xs'Xs / (N-1).
	q := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			s := 0.0
			for r := 0; r < n; r++ {
				s += t.white.At(r, i) * t.white.At(r, j)
			}
			q.SetSym(i, j, s/float64(n-1))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(q); !ok {
		return nil, fmt.Errorf("huseby: correlation matrix is not positive definite")
	}
	t.l = mat.NewTriDense(m, mat.Lower, nil)
	chol.LTo(t.l)

	// Whiten each row: solve L y = x by forward substitution.
	y := make([]float64, m)
	for r := 0; r < n; r++ {
		for i := 0; i < m; i++ {
			s := t.white.At(r, i)
			for j := 0; j < i; j++ {
				s -= t.l.At(i, j) * y[j]
			}
			y[i] = s / t.l.At(i, i)
		}
		t.white.SetRow(r, y)
	}
	return t, nil
}

// quantileRank holds the order-statistic interpolation indices for one
// probability level: rank k = N*p + 0.5 blended between floor and ceiling.
type quantileRank struct {
	kf, kc int
	dk     float64
}

func quantileRanks(n int, prob []float64) ([]quantileRank, error) {
	ranks := make([]quantileRank, len(prob))
	for i, p := range prob {
		k := float64(n)*p + 0.5
		r := quantileRank{
			kf: int(math.Floor(k)) - 1,
			kc: int(math.Ceil(k)) - 1,
			dk: k - math.Floor(k),
		}
		if r.kf < 0 || r.kc >= n {
			return nil, fmt.Errorf("huseby: probability %g is out of range for %d samples", p, n)
		}
		ranks[i] = r
	}
	return ranks, nil
}

// directionalQuantiles projects the whitened sample onto dir and interpolates
// the order statistic for every requested rank.
func directionalQuantiles(white *mat.Dense, dir []float64, ranks []quantileRank, out []float64) {
	n, m := white.Dims()
	proj := make([]float64, n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < m; j++ {
			s += white.At(i, j) * dir[j]
		}
		proj[i] = s
	}
	sort.Float64s(proj)
	for i, r := range ranks {
		out[i] = (proj[r.kc]-proj[r.kf])*r.dk + proj[r.kf]
	}
}

// HusebyContour computes directional-quantile environmental contours of the
// simulated sample for every probability level. Only 2- and 3-column input
// is supported; ntheta must be a positive multiple of 4.
func HusebyContour(data *mat.Dense, prob []float64, ntheta int) (*Contour2D, *Contour3D, error) {
	_, m := data.Dims()
	switch m {
	case 2:
		c, err := HusebyContour2D(data, prob, ntheta)
		return c, nil, err
	case 3:
		c, err := HusebyContour3D(data, prob, ntheta)
		return nil, c, err
	}
	return nil, nil, fmt.Errorf("huseby: only 2- and 3-dimensional data is handled, got %d columns", m)
}

func validateHusebyArgs(data *mat.Dense, prob []float64, ntheta, wantDim int) error {
	n, m := data.Dims()
	if m != wantDim {
		return fmt.Errorf("huseby: expected %d columns, got %d", wantDim, m)
	}
	if n < 2 {
		return fmt.Errorf("huseby: need at least 2 samples, got %d", n)
	}
	if ntheta <= 0 || ntheta%4 != 0 {
		return fmt.Errorf("huseby: ntheta must be a positive multiple of 4, got %d", ntheta)
	}
	if len(prob) == 0 {
		return fmt.Errorf("huseby: at least one probability level is required")
	}
	return nil
}

func angleGrid(ntheta int) (theta, ctheta, stheta []float64) {
	theta = make([]float64, ntheta)
	ctheta = make([]float64, ntheta)
	stheta = make([]float64, ntheta)
	for i := range theta {
		theta[i] = float64(i) * 2 * math.Pi / float64(ntheta)
		ctheta[i] = math.Cos(theta[i])
		stheta[i] = math.Sin(theta[i])
	}
	return theta, ctheta, stheta
}

// HusebyContour2D computes the 2D contours.
func HusebyContour2D(data *mat.Dense, prob []float64, ntheta int) (*Contour2D, error) {
	if err := validateHusebyArgs(data, prob, ntheta, 2); err != nil {
		return nil, err
	}
	n, _ := data.Dims()

	tr, err := newHusebyTransform(data)
	if err != nil {
		return nil, err
	}
	ranks, err := quantileRanks(n, prob)
	if err != nil {
		return nil, err
	}

	theta, ctheta, stheta := angleGrid(ntheta)

	// Directional quantiles C[i][p].
	c := make([][]float64, ntheta)
	for i := 0; i < ntheta; i++ {
		c[i] = make([]float64, len(prob))
		directionalQuantiles(tr.white, []float64{ctheta[i], stheta[i]}, ranks, c[i])
	}

	// Convexification: the support value in direction i is the minimum of
	// C[j]/<dir_i, dir_j> over directions with non-negative inner product
	// (clipped to zero before the division).
	conv := make([][]float64, ntheta)
	for i := 0; i < ntheta; i++ {
		conv[i] = make([]float64, len(prob))
		for p := range prob {
			min := math.Inf(1)
			for j := 0; j < ntheta; j++ {
				ps := ctheta[i]*ctheta[j] + stheta[i]*stheta[j]
				if ps < 0 {
					ps = 0
				}
				if v := c[j][p] / ps; v < min {
					min = v
				}
			}
			conv[i][p] = min
		}
	}

	out := &Contour2D{
		Theta: theta,
		Prob:  append([]float64(nil), prob...),
		X:     mat.NewDense(ntheta, len(prob), nil),
		Y:     mat.NewDense(ntheta, len(prob), nil),
	}
	l := tr.l
	for i := 0; i < ntheta; i++ {
		for p := range prob {
			xr := ctheta[i] * conv[i][p]
			yr := stheta[i] * conv[i][p]
			// Un-whiten and un-standardize (upper-triangular back-transform).
			out.Y.Set(i, p, l.At(1, 0)*tr.std[1]*xr+l.At(1, 1)*tr.std[1]*yr+tr.mean[1])
			out.X.Set(i, p, l.At(0, 0)*tr.std[0]*xr+tr.mean[0])
		}
	}
	return out, nil
}

// HusebyContour3D computes the 3D contours. The direction sphere is an
// ntheta x ntheta azimuth/elevation grid restricted to the canonical
// quarter-sphere; the remaining octants are filled by the symmetry map in
// mirrorElevations.
func HusebyContour3D(data *mat.Dense, prob []float64, ntheta int) (*Contour3D, error) {
	if err := validateHusebyArgs(data, prob, ntheta, 3); err != nil {
		return nil, err
	}
	n, _ := data.Dims()

	tr, err := newHusebyTransform(data)
	if err != nil {
		return nil, err
	}
	ranks, err := quantileRanks(n, prob)
	if err != nil {
		return nil, err
	}

	theta, ctheta, stheta := angleGrid(ntheta)

	// Canonical elevation indices: 0..ntheta/4 and their mirrors just below
	// a full turn. nindj = ntheta/2 + 1 columns cover the quarter-sphere.
	quarter := ntheta / 4
	indj := make([]int, 0, ntheta/2+1)
	for j := 0; j <= quarter; j++ {
		indj = append(indj, j)
	}
	for j := 1; j <= quarter; j++ {
		indj = append(indj, ntheta-j)
	}
	nindj := len(indj)
	ncdir := ntheta * nindj

	// Directions and their quantiles, icdir = i*nindj + jj.
	cdir := make([][3]float64, ncdir)
	c := make([][][]float64, ntheta)
	for i := range c {
		c[i] = make([][]float64, ntheta)
	}
	quant := make([]float64, len(prob))
	for i := 0; i < ntheta; i++ {
		for jj, j := range indj {
			dir := [3]float64{ctheta[i] * ctheta[j], stheta[j], stheta[i] * ctheta[j]}
			cdir[i*nindj+jj] = dir
			directionalQuantiles(tr.white, dir[:], ranks, quant)
			c[i][j] = append([]float64(nil), quant...)
		}
	}

	// Pairwise inner products, clipped to zero.
	ps := make([][]float64, ncdir)
	for a := range ps {
		ps[a] = make([]float64, ncdir)
		for b := range ps[a] {
			v := cdir[a][0]*cdir[b][0] + cdir[a][1]*cdir[b][1] + cdir[a][2]*cdir[b][2]
			if v < 0 {
				v = 0
			}
			ps[a][b] = v
		}
	}

	out := &Contour3D{
		Theta: theta,
		Prob:  append([]float64(nil), prob...),
		X:     mat.NewDense(ncdir, len(prob), nil),
		Y:     mat.NewDense(ncdir, len(prob), nil),
		Z:     mat.NewDense(ncdir, len(prob), nil),
	}

	tmp := make([]float64, ncdir)
	dmin := make([]float64, ncdir)
	for p := range prob {
		for i := 0; i < ntheta; i++ {
			for jj, j := range indj {
				tmp[i*nindj+jj] = c[i][j][p]
			}
		}
		for a := 0; a < ncdir; a++ {
			min := math.Inf(1)
			for b := 0; b < ncdir; b++ {
				if v := tmp[b] / ps[a][b]; v < min {
					min = v
				}
			}
			dmin[a] = min
		}
		for i := 0; i < ntheta; i++ {
			for jj, j := range indj {
				c[i][j][p] = dmin[i*nindj+jj]
			}
		}

		mirrorElevations(c, p, ntheta, len(prob))

		// Back to Cartesian and physical units. Rows are ordered elevation-
		// major (jj outer, azimuth i inner).
		l := tr.l
		for jj, j := range indj {
			for i := 0; i < ntheta; i++ {
				row := jj*ntheta + i
				v := c[i][j][p]
				xr := ctheta[i] * ctheta[j] * v
				yr := stheta[j] * v
				zr := stheta[i] * ctheta[j] * v
				out.Z.Set(row, p, l.At(2, 0)*tr.std[2]*xr+l.At(2, 1)*tr.std[2]*yr+l.At(2, 2)*tr.std[2]*zr+tr.mean[2])
				out.Y.Set(row, p, l.At(1, 0)*tr.std[1]*xr+l.At(1, 1)*tr.std[1]*yr+tr.mean[1])
				out.X.Set(row, p, l.At(0, 0)*tr.std[0]*xr+tr.mean[0])
			}
		}
	}
	return out, nil
}

// mirrorElevations completes the support function over the non-canonical
// elevation columns by symmetry: direction (i, j) for j on the far half of
// the elevation circle equals direction (i + ntheta/2 mod ntheta, j') where
// j' is the reflected canonical elevation.
func mirrorElevations(c [][][]float64, p, ntheta, nprob int) {
	quarter := ntheta / 4
	half := ntheta / 2

	// Non-canonical elevation columns and their canonical reflections.
	for m := 0; m < half-1; m++ {
		target := quarter + 1 + m
		var src int
		if m < quarter {
			src = quarter - 1 - m
		} else {
			src = ntheta - (m - quarter) - 1
		}
		for i := 0; i < ntheta; i++ {
			mirrored := (i + half) % ntheta
			if c[i][target] == nil {
				c[i][target] = make([]float64, nprob)
			}
			c[i][target][p] = c[mirrored][src][p]
		}
	}
}
