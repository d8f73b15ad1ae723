package sim

import "math"

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// catalogWithXP returns the default catalog with a replaced XP curve.
func catalogWithXP(thresholds []float64, growth float64) *Catalog {
	c := DefaultCatalog()
	c.XP = XPCurve{Thresholds: thresholds, Growth: growth}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

type recordedNumbers struct {
	numbers []DamageNumber
}

func (r *recordedNumbers) SpawnDamageNumber(n DamageNumber) {
	r.numbers = append(r.numbers, n)
}

type recordedCues struct {
	keys []string
}

func (r *recordedCues) PlayCue(key string) {
	r.keys = append(r.keys, key)
}
