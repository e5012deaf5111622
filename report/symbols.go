package report

import (
	"sort"
	"strconv"
	"strings"
)

// Symbols maps a rendered action's id to its 1-based symbol number.
type Symbols map[int64]int

func (s Symbols) Assign(actionID int64, symbol int) { s[actionID] = symbol }

// Resolve returns the distinct, ascending symbols of the given actions.
// Ids with no symbol are skipped.
func (s Symbols) Resolve(actionIDs []int64) []int {
	seen := make(map[int]bool, len(actionIDs))
	out := make([]int, 0, len(actionIDs))
	for _, id := range actionIDs {
		sym, ok := s[id]
		if !ok || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	sort.Ints(out)
	return out
}

// CSV renders Resolve as "1,2,5".
func (s Symbols) CSV(actionIDs []int64) string {
	syms := s.Resolve(actionIDs)
	parts := make([]string, len(syms))
	for i, v := range syms {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
