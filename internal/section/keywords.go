package section

import (
	"regexp"
	"sort"
	"strings"
)

// 至少 4 个字母或数字组成的词
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]{4,}`)

// Keywords 按词频降序取前 topN 个小写词，词频相同按首次出现顺序
func Keywords(text string, topN int) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return []string{}
	}

	freq := make(map[string]int)
	first := make(map[string]int)
	var order []string
	for i, w := range words {
		if _, ok := freq[w]; !ok {
			first[w] = i
			order = append(order, w)
		}
		freq[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if freq[a] != freq[b] {
			return freq[a] > freq[b]
		}
		return first[a] < first[b]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}
	return order
}
