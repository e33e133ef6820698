package eva

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Gauss-Legendre abscissas and weights used by the bivariate normal
// algorithm, keyed by |rho| (Drezner & Wesolowsky, as refined by Genz).
var (
	bvnX6 = []float64{0.9324695142031521, 0.6612093864662645, 0.2386191860831969}
	bvnW6 = []float64{0.1713244923791704, 0.3607615730481386, 0.4679139345726910}

	bvnX12 = []float64{
		0.9815606342467192, 0.9041172563704749, 0.7699026741943047,
		0.5873179542866175, 0.3678314989981802, 0.1252334085114689,
	}
	bvnW12 = []float64{
		0.04717533638651183, 0.1069393259953184, 0.1600783285433462,
		0.2031674267230659, 0.2334925365383548, 0.2491470458134028,
	}

	bvnX20 = []float64{
		0.9931285991850949, 0.9639719272779138, 0.9122344282513259,
		0.8391169718222188, 0.7463319064601508, 0.6360536807265150,
		0.5108670019508271, 0.3737060887154195, 0.2277858511416451,
		0.07652652113349734,
	}
	bvnW20 = []float64{
		0.01761400713915212, 0.04060142980038694, 0.06267204833410907,
		0.08327674157670475, 0.1019301198172404, 0.1181945319615184,
		0.1316886384491766, 0.1420961093183820, 0.1491729864726037,
		0.1527533871307258,
	}
)

func phid(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// bvnUpper computes P(X > h, Y > k) for a standard bivariate normal with
// correlation r, following Genz's BVND rewrite of the Drezner-Wesolowsky
// algorithm. Accurate to about 1e-15.
func bvnUpper(h, k, r float64) float64 {
	var x, w []float64
	switch {
	case math.Abs(r) < 0.3:
		x, w = bvnX6, bvnW6
	case math.Abs(r) < 0.75:
		x, w = bvnX12, bvnW12
	default:
		x, w = bvnX20, bvnW20
	}

	const twoPi = 2 * math.Pi
	hk := h * k
	bvn := 0.0

	if math.Abs(r) <= 0.925 {
		if math.Abs(r) > 0 {
			hs := (h*h + k*k) / 2
			asr := math.Asin(r)
			for i := range x {
				for _, is := range []float64{-1, 1} {
					sn := math.Sin(asr * (is*x[i] + 1) / 2)
					bvn += w[i] * math.Exp((sn*hk-hs)/(1-sn*sn))
				}
			}
			bvn = bvn * asr / (2 * twoPi)
		}
		return bvn + phid(-h)*phid(-k)
	}

	// |r| > 0.925: expansion around the singular r = +-1 cases.
	if r < 0 {
		k = -k
		hk = -hk
	}
	if math.Abs(r) < 1 {
		as := (1 - r) * (1 + r)
		a := math.Sqrt(as)
		bs := (h - k) * (h - k)
		c := (4 - hk) / 8
		d := (12 - hk) / 16
		asr := -(bs/as + hk) / 2
		if asr > -100 {
			bvn = a * math.Exp(asr) * (1 - c*(bs-as)*(1-d*bs/5)/3 + c*d*as*as/5)
		}
		if -hk < 100 {
			b := math.Sqrt(bs)
			bvn -= math.Exp(-hk/2) * math.Sqrt(twoPi) * phid(-b/a) * b * (1 - c*bs*(1-d*bs/5)/3)
		}
		a /= 2
		for i := range x {
			for _, is := range []float64{-1, 1} {
				xs := a * (is*x[i] + 1)
				xs *= xs
				rs := math.Sqrt(1 - xs)
				asr := -(bs/xs + hk) / 2
				if asr > -100 {
					bvn += a * w[i] * math.Exp(asr) *
						(math.Exp(-hk*(1-rs)/(2*(1+rs)))/rs - (1 + c*xs*(1+d*xs)))
				}
			}
		}
		bvn = -bvn / twoPi
	}
	if r > 0 {
		return bvn + phid(-math.Max(h, k))
	}
	return -bvn + math.Max(0, phid(-h)-phid(-k))
}

// orthantMCSeed fixes the quasi-random draws of the Genz estimator so that
// repeated evaluations during optimization see a smooth objective.
const orthantMCSeed = 0x6d65746f

const orthantMCSamples = 8192

// orthantMC estimates P(Z_i > lower for all i) under N(0, sigma) with Genz's
// separation-of-variables sampler. The estimate is deterministic for a given
// dimension (fixed seed) with standard error well below 1e-3 at the sample
// count used.
func orthantMC(sigma *mat.SymDense, lower float64) float64 {
	m := sigma.SymmetricDim()

	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return 0
	}
	l := mat.NewTriDense(m, mat.Lower, nil)
	chol.LTo(l)

	rng := rand.New(rand.NewSource(orthantMCSeed))
	y := make([]float64, m)

	total := 0.0
	for n := 0; n < orthantMCSamples; n++ {
		f := 1.0
		for i := 0; i < m; i++ {
			s := 0.0
			for j := 0; j < i; j++ {
				s += l.At(i, j) * y[j]
			}
			d := phid((lower - s) / l.At(i, i))
			f *= 1 - d
			if f == 0 {
				break
			}
			if i < m-1 {
				y[i] = distuv.UnitNormal.Quantile(d + rng.Float64()*(1-d))
			}
		}
		total += f
	}
	return total / float64(orthantMCSamples)
}

// orthantProbability computes the upper-orthant probability
// P(Z_i > lower for all i) of a zero-mean multivariate normal: exact
// quadrature in the bivariate case, Genz Monte Carlo above.
func orthantProbability(sigma *mat.SymDense, lower float64) float64 {
	if sigma.SymmetricDim() == 2 {
		return bvnUpper(lower, lower, sigma.At(0, 1))
	}
	return orthantMC(sigma, lower)
}
