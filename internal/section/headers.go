package section

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"resume-engine/internal/types"
)

// HeaderTable 语言 -> 章节键 -> 标题同义词
// 新增语言只需要加一项，切分逻辑不变
type HeaderTable map[string]map[types.SectionKey][]string

// DefaultHeaderTable 英文和德文标题
var DefaultHeaderTable = HeaderTable{
	"en": {
		types.SectionProfile:    {"Profile", "Summary"},
		types.SectionExperience: {"Work Experience", "Experience", "Employment"},
		types.SectionEducation:  {"Education", "Academic"},
		types.SectionSkills:     {"Skills", "Competencies", "Expertise"},
	},
	"de": {
		types.SectionProfile:    {"Profil", "Zusammenfassung"},
		types.SectionExperience: {"Berufserfahrung", "Arbeitserfahrung"},
		types.SectionEducation:  {"Ausbildung", "Bildung", "Studium"},
		types.SectionSkills:     {"Kenntnisse", "Fähigkeiten", "Kompetenzen"},
	},
}

// Merge 合并另一张表，同一语言同一键的同义词追加
func (t HeaderTable) Merge(other HeaderTable) HeaderTable {
	out := make(HeaderTable, len(t)+len(other))
	for _, src := range []HeaderTable{t, other} {
		for lang, keys := range src {
			if out[lang] == nil {
				out[lang] = make(map[types.SectionKey][]string)
			}
			for key, words := range keys {
				out[lang][key] = append(out[lang][key], words...)
			}
		}
	}
	return out
}

// synonyms 某个键在所有语言下的同义词，去重，长的在前
func (t HeaderTable) synonyms(key types.SectionKey) []string {
	seen := make(map[string]bool)
	var words []string
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		for _, w := range t[lang][key] {
			w = strings.TrimSpace(w)
			lw := strings.ToLower(w)
			if w == "" || seen[lw] {
				continue
			}
			seen[lw] = true
			words = append(words, w)
		}
	}
	sort.SliceStable(words, func(i, j int) bool { return len(words[i]) > len(words[j]) })
	return words
}

// qualifierPattern 标题前的修饰词；大小写敏感，避免把 "strong communication skills" 这类句子当作标题
const qualifierPattern = `(?:(?-i:\p{Lu}[\p{L}&]*)[ \t]+){0,2}`

// compile 编译为一个不区分大小写的多分支正则，每个键一个命名分组
// 标题须位于行首，前面最多两个首字母大写的修饰词(如 PROFESSIONAL、Technical)，后面只能跟冒号或换行
func (t HeaderTable) compile() (*regexp.Regexp, error) {
	var groups []string
	for _, key := range types.CanonicalSections {
		words := t.synonyms(key)
		if len(words) == 0 {
			continue
		}
		alts := make([]string, len(words))
		for i, w := range words {
			alts[i] = strings.Join(strings.Fields(regexp.QuoteMeta(w)), `\s+`)
		}
		groups = append(groups, fmt.Sprintf("(?P<%s>%s)", key, strings.Join(alts, "|")))
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("标题表为空")
	}
	pattern := `(?im)^[ \t]*` + qualifierPattern + `(?:` + strings.Join(groups, "|") + `)[ \t]*(?::|$)`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("编译章节标题正则失败: %w", err)
	}
	return re, nil
}
