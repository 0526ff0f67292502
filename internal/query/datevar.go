package query

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var reMonthDayParts = regexp.MustCompile(`(\d{1,2})月(\d{1,2})日`)

// DateVariations expands a recognized N月N日 expression into the written
// forms a file name or document might use. File names and note text encode
// dates inconsistently, so retrieval has to match any of them.
func DateVariations(expr string) []string {
	return DateVariationsAt(expr, time.Now())
}

// DateVariationsAt is DateVariations with an injectable clock for tests.
func DateVariationsAt(expr string, now time.Time) []string {
	match := reMonthDayParts.FindStringSubmatch(expr)
	if match == nil {
		return []string{expr}
	}

	month, err := strconv.Atoi(match[1])
	if err != nil {
		return []string{expr}
	}
	day, err := strconv.Atoi(match[2])
	if err != nil {
		return []string{expr}
	}

	seen := make(map[string]struct{})
	var variations []string
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variations = append(variations, v)
	}

	add(expr)
	add(fmt.Sprintf("%d月%d日", month, day))
	add(fmt.Sprintf("%02d月%02d日", month, day))

	separators := []string{"/", "-", "."}
	for _, sep := range separators {
		add(fmt.Sprintf("%d%s%d", month, sep, day))
		add(fmt.Sprintf("%02d%s%02d", month, sep, day))
	}

	years := []int{now.Year(), now.Year() - 1}
	for _, year := range years {
		add(fmt.Sprintf("%d年%d月%d日", year, month, day))
		add(fmt.Sprintf("%d年%02d月%02d日", year, month, day))
		for _, sep := range separators {
			add(fmt.Sprintf("%d%s%d%s%d", year, sep, month, sep, day))
			add(fmt.Sprintf("%d%s%02d%s%02d", year, sep, month, sep, day))
		}
	}

	return variations
}
