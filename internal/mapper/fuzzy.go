package mapper

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
)

// tokenSet 按空白切分后的去重排序 token
type tokenSet []string

func tokenize(s string) tokenSet {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make(tokenSet, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// similarity is a 0-100 score kept as a fraction so ranking and truncation stay exact.
type similarity struct {
	num, den int
}

func (s similarity) Float() float64 {
	if s.den == 0 {
		return 100
	}
	return 100 * float64(s.num) / float64(s.den)
}

// Int truncates toward zero like int(score).
func (s similarity) Int() int {
	if s.den == 0 {
		return 100
	}
	return 100 * s.num / s.den
}

func (s similarity) less(o similarity) bool {
	return s.num*o.den < o.num*s.den
}

// indelSimilarity: (lensum - dist) / lensum, dist = insertions + deletions
func indelSimilarity(dist, lensum int) similarity {
	if lensum == 0 {
		return similarity{num: 1, den: 1}
	}
	return similarity{num: lensum - dist, den: lensum}
}

func indelDistance(a, b string) int {
	return utf8.RuneCountInString(a) + utf8.RuneCountInString(b) - 2*edlib.LCS(a, b)
}

// Ratio is the normalized indel similarity of two strings, 0-100.
func Ratio(a, b string) float64 {
	lensum := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	return indelSimilarity(indelDistance(a, b), lensum).Float()
}

// TokenSetRatio 词集相似度（与 token 顺序无关、容忍部分重合），0-100
func TokenSetRatio(a, b string) float64 {
	return tokenSetSimilarity(tokenize(a), tokenize(b)).Float()
}

func tokenSetSimilarity(a, b tokenSet) similarity {
	if len(a) == 0 || len(b) == 0 {
		return similarity{num: 0, den: 1}
	}

	var intersect, diffAB, diffBA []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			intersect = append(intersect, a[i])
			i++
			j++
		case a[i] < b[j]:
			diffAB = append(diffAB, a[i])
			i++
		default:
			diffBA = append(diffBA, b[j])
			j++
		}
	}
	diffAB = append(diffAB, a[i:]...)
	diffBA = append(diffBA, b[j:]...)

	// one side is contained in the other
	if len(intersect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return similarity{num: 1, den: 1}
	}

	ab := strings.Join(diffAB, " ")
	ba := strings.Join(diffBA, " ")
	abLen := utf8.RuneCountInString(ab)
	baLen := utf8.RuneCountInString(ba)
	sectLen := utf8.RuneCountInString(strings.Join(intersect, " "))

	sep := 0
	if sectLen != 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + abLen
	sectBALen := sectLen + sep + baLen

	best := indelSimilarity(indelDistance(ab, ba), sectABLen+sectBALen)
	if sectLen == 0 {
		return best
	}

	// sect vs sect+ab and sect vs sect+ba only differ by the appended tokens
	if r := indelSimilarity(sep+abLen, sectLen+sectABLen); best.less(r) {
		best = r
	}
	if r := indelSimilarity(sep+baLen, sectLen+sectBALen); best.less(r) {
		best = r
	}
	return best
}
