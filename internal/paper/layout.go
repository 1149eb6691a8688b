package paper

// PageBreaksAfter returns the 1-based question numbers after which a page break
// is inserted: after every perPage-th question, never after the last one.
func PageBreaksAfter(count, perPage int) []int {
	if perPage <= 0 {
		perPage = DefaultQuestionsPerPage
	}
	var breaks []int
	for n := perPage; n < count; n += perPage {
		breaks = append(breaks, n)
	}
	return breaks
}

// FitImage scales a srcW x srcH image into a maxW x maxH box keeping its aspect
// ratio. Height is capped first and width follows from the ratio; a result that
// is still too wide is then capped on width. Images already inside the box keep
// their size.
func FitImage(srcW, srcH, maxW, maxH float64) (w, h float64) {
	if srcW <= 0 || srcH <= 0 {
		return 0, 0
	}
	w, h = srcW, srcH
	if h > maxH {
		h = maxH
		w = srcW * h / srcH
	}
	if w > maxW {
		w = maxW
		h = srcH * w / srcW
	}
	return w, h
}
