package report

import "sort"

// Percentages converts counts into percentages with one decimal place using
// the largest-remainder method, so the result sums to exactly 100.0 whenever
// any count is positive. Ties go to the earlier count. All zeros yield all
// zeros.
func Percentages(counts []int) []float64 {
	units := Tenths(counts)
	out := make([]float64, len(units))
	for i, u := range units {
		out[i] = float64(u) / 10
	}
	return out
}

// Tenths is Percentages in integer tenths of a percent; the result sums to
// 1000 whenever any count is positive.
func Tenths(counts []int) []int {
	const whole = 1000

	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}
	units := make([]int, len(counts))
	if total == 0 {
		return units
	}

	type rem struct {
		idx int
		r   int
	}
	rems := make([]rem, 0, len(counts))
	assigned := 0
	for i, c := range counts {
		if c <= 0 {
			continue
		}
		q := c * whole
		units[i] = q / total
		assigned += units[i]
		rems = append(rems, rem{idx: i, r: q % total})
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].r > rems[b].r })
	for i := 0; assigned < whole; i++ {
		units[rems[i%len(rems)].idx]++
		assigned++
	}
	return units
}
