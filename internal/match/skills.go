package match

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-engine/internal/types"
)

var (
	versionPattern   = regexp.MustCompile(`\bv?\d+(?:\.\d+)*\b`)
	frameworkPattern = regexp.MustCompile(`\bframeworks?\b`)
)

// skillComparison 技能比较的结果
type skillComparison struct {
	matched []string // 岗位技能中被简历覆盖的部分，岗位写法
	missing []string // 岗位技能中未被覆盖的部分
	total   int
}

// compareSkills 先精确（忽略大小写）匹配，再对剩余岗位技能做模糊匹配
func compareSkills(resume, job *types.SkillSet) skillComparison {
	out := skillComparison{total: job.Len()}
	resumeItems := resume.Items()

	for _, js := range job.Items() {
		if resume.Has(js) || fuzzyMatchAny(js, resumeItems) {
			out.matched = append(out.matched, js)
			continue
		}
		out.missing = append(out.missing, js)
	}
	return out
}

func fuzzyMatchAny(jobSkill string, resumeSkills []string) bool {
	for _, rs := range resumeSkills {
		if fuzzyMatch(jobSkill, rs) {
			return true
		}
	}
	return false
}

// fuzzyMatch 按词边界的包含关系（任一方向），或规范形式相同
func fuzzyMatch(a, b string) bool {
	la, lb := types.NormalizeSkill(a), types.NormalizeSkill(b)
	if la == "" || lb == "" {
		return false
	}
	if la == lb || containsWord(la, lb) || containsWord(lb, la) {
		return true
	}
	na, nb := normalizeForFuzzy(a), normalizeForFuzzy(b)
	return na != "" && na == nb
}

// normalizeForFuzzy 去掉 .js / js 后缀、framework、版本号和标点
// + 和 # 保留，C++ 与 C 不应相同
func normalizeForFuzzy(skill string) string {
	s := strings.ToLower(strings.TrimSpace(skill))
	s = strings.TrimSuffix(s, ".js")
	if strings.HasSuffix(s, "js") && strings.Contains(s, ".") {
		s = strings.TrimSuffix(s, "js")
	}
	s = frameworkPattern.ReplaceAllString(s, " ")
	s = versionPattern.ReplaceAllString(s, " ")

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// containsWord needle 以完整词的形式出现在 haystack 中
func containsWord(haystack, needle string) bool {
	if len(needle) >= len(haystack) {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if wordBoundary(haystack, start, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(haystack[start:])
		offset = start + size
	}
}

func wordBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			return false
		}
	}
	return true
}

// mergeSkills 依次合并多个列表，忽略大小写去重并截断到 limit
func mergeSkills(limit int, lists ...[]string) []string {
	set := types.NewSkillSet()
	for _, list := range lists {
		for _, s := range list {
			set.Add(s)
		}
	}
	return capList(set.Items(), limit)
}

func capList(items []string, limit int) []string {
	if items == nil {
		return []string{}
	}
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
