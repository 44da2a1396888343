package dashboard

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var prefixNumberPattern = regexp.MustCompile(`^([A-Za-z]+)(\d+)$`)

// OrderCameras returns ids in presentation order. When any id looks like a
// letter prefix followed by a number ("A01", "B12"), matching ids come first,
// grouped by prefix and ordered numerically within a group; the rest follow in
// natural order. Without such ids the whole list is in natural order.
func OrderCameras(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)

	patterned := false
	for _, id := range out {
		if prefixNumberPattern.MatchString(id) {
			patterned = true
			break
		}
	}

	if !patterned {
		sort.SliceStable(out, func(i, j int) bool {
			return naturalLess(out[i], out[j])
		})
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		mi := prefixNumberPattern.FindStringSubmatch(out[i])
		mj := prefixNumberPattern.FindStringSubmatch(out[j])
		switch {
		case mi != nil && mj != nil:
			pi, pj := strings.ToUpper(mi[1]), strings.ToUpper(mj[1])
			if pi != pj {
				return pi < pj
			}
			ni, _ := strconv.ParseUint(mi[2], 10, 64)
			nj, _ := strconv.ParseUint(mj[2], 10, 64)
			if ni != nj {
				return ni < nj
			}
			return out[i] < out[j]
		case mi != nil:
			return true
		case mj != nil:
			return false
		default:
			return naturalLess(out[i], out[j])
		}
	})
	return out
}

// naturalLess compares case-insensitively with digit runs compared by value
func naturalLess(a, b string) bool {
	ca, cb := chunk(a), chunk(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		if x.numeric && y.numeric {
			if x.num != y.num {
				return x.num < y.num
			}
			continue
		}
		if x.text != y.text {
			return x.text < y.text
		}
	}
	if len(ca) != len(cb) {
		return len(ca) < len(cb)
	}
	return a < b
}

type segment struct {
	text    string
	numeric bool
	num     uint64
}

func chunk(s string) []segment {
	var segs []segment
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i
		digit := unicode.IsDigit(runes[i])
		for j < len(runes) && unicode.IsDigit(runes[j]) == digit {
			j++
		}
		part := string(runes[i:j])
		seg := segment{text: strings.ToLower(part), numeric: digit}
		if digit {
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				seg.numeric = false
			} else {
				seg.num = n
			}
		}
		segs = append(segs, seg)
		i = j
	}
	return segs
}
