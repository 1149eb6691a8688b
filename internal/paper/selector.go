// Package paper selects questions for a mark budget and renders them into a printable paper.
package paper

import (
	"math"
	"sort"

	"qbank_backend/internal/model"
)

// DefaultDistribution is used when a request carries no distribution at all.
var DefaultDistribution = model.DifficultyDistribution{Easy: 0.3, Medium: 0.5, Hard: 0.2}

// targetEpsilon absorbs float error such as 10*0.3 = 3.0000000000000004 or 0.29999999999999999.
const targetEpsilon = 1e-9

type bucket struct {
	level string
	share float64
}

// Select picks questions for a paper of totalMarks. Each difficulty bucket is filled
// greedily, smallest marks first, up to its share of the budget; any budget left
// over is then filled from the remaining candidates regardless of difficulty.
// Candidate order breaks ties, so identical input always yields identical output.
// The sum of the selected marks never exceeds totalMarks.
func Select(candidates []model.Question, totalMarks int, dist model.DifficultyDistribution) []model.Question {
	if len(candidates) == 0 || totalMarks <= 0 {
		return nil
	}
	if dist.Easy == 0 && dist.Medium == 0 && dist.Hard == 0 {
		dist = DefaultDistribution
	}

	byLevel := map[string][]int{}
	for i, q := range candidates {
		byLevel[q.DifficultyLevel] = append(byLevel[q.DifficultyLevel], i)
	}

	taken := make([]bool, len(candidates))
	var picked []int
	remaining := totalMarks

	for _, b := range []bucket{
		{model.DifficultyEasy, dist.Easy},
		{model.DifficultyMedium, dist.Medium},
		{model.DifficultyHard, dist.Hard},
	} {
		target := int(math.Floor(float64(totalMarks)*b.share + targetEpsilon))
		idx := byLevel[b.level]
		sortByMarks(candidates, idx)

		running := 0
		for _, i := range idx {
			if running >= target {
				break
			}
			m := candidates[i].Marks
			if m <= 0 {
				continue
			}
			if running+m <= target && m <= remaining {
				taken[i] = true
				picked = append(picked, i)
				running += m
				remaining -= m
			}
		}
	}

	if remaining > 0 {
		var rest []int
		for i := range candidates {
			if !taken[i] && candidates[i].Marks > 0 {
				rest = append(rest, i)
			}
		}
		sortByMarks(candidates, rest)
		for _, i := range rest {
			if remaining <= 0 {
				break
			}
			if m := candidates[i].Marks; m <= remaining {
				taken[i] = true
				picked = append(picked, i)
				remaining -= m
			}
		}
	}

	out := make([]model.Question, 0, len(picked))
	for _, i := range picked {
		out = append(out, candidates[i])
	}
	return out
}

func sortByMarks(candidates []model.Question, idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return candidates[idx[a]].Marks < candidates[idx[b]].Marks
	})
}

// SumMarks returns the total marks of qs.
func SumMarks(qs []model.Question) int {
	total := 0
	for _, q := range qs {
		total += q.Marks
	}
	return total
}
