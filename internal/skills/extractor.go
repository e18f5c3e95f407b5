package skills

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-engine/internal/types"
)

// 单个技能条目的最大长度
const maxItemLen = 40

var (
	// 技能块："Skills:" 之后直到空行或文末
	skillsBlockPattern = regexp.MustCompile(`(?is)(?:Skills|Competencies|Expertise|Kenntnisse|Fähigkeiten|Kompetenzen)[ \t]*:(.*?)(?:\n[ \t]*\n|\z)`)
	// 斜杠两侧至少有一个空白才切分，CI/CD 这类词保持完整
	itemSplitPattern = regexp.MustCompile(`[,•·;|\n]+|\s+/\s*|\s*/\s+`)

	multiWordPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+){1,2}\b`)
	acronymPattern   = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,5}\b`)
	techTokenPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z][A-Za-z0-9]*[+#.][A-Za-z0-9+#.]*)`)
	dottedPattern    = regexp.MustCompile(`\.[A-Za-z]{2,}`)
)

type compiledTerm struct {
	term Term
	re   *regexp.Regexp
}

// Extractor 技能提取器，构造后只读，可并发使用
type Extractor struct {
	vocabulary []Term
	stopwords  []string

	terms []compiledTerm
	stop  map[string]bool
}

// Option 提取器选项
type Option func(*Extractor)

// WithVocabulary 追加词表
func WithVocabulary(terms ...Term) Option {
	return func(e *Extractor) { e.vocabulary = append(e.vocabulary, terms...) }
}

// WithStopwords 追加停用词
func WithStopwords(words ...string) Option {
	return func(e *Extractor) { e.stopwords = append(e.stopwords, words...) }
}

// NewExtractor 创建提取器
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		vocabulary: append([]Term(nil), DefaultVocabulary...),
		stopwords:  append([]string(nil), defaultStopwords...),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.stop = make(map[string]bool, len(e.stopwords))
	for _, w := range e.stopwords {
		e.stop[strings.ToLower(strings.TrimSpace(w))] = true
	}
	for _, t := range e.vocabulary {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		pattern := strings.Join(strings.Fields(regexp.QuoteMeta(name)), `\s+`)
		if !t.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		e.terms = append(e.terms, compiledTerm{term: t, re: regexp.MustCompile(pattern)})
	}
	return e
}

var defaultExtractor = NewExtractor()

// Default 使用内置词表的提取器
func Default() *Extractor {
	return defaultExtractor
}

// Extract 依次合并技能块、词表和模式扫描的结果
// 大小写不敏感去重，保留首次出现的写法
func (e *Extractor) Extract(text string) *types.SkillSet {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	set := types.NewSkillSet()

	for _, item := range e.skillsBlock(text) {
		set.Add(item)
	}

	hits, spans := e.vocabularyHits(text)
	for _, h := range hits {
		set.Add(h.name)
	}

	for _, item := range e.patternScan(text, spans) {
		set.Add(item)
	}
	return set
}

// ExtractTop 返回前 topN 个技能，topN <= 0 时返回全部
func (e *Extractor) ExtractTop(text string, topN int) []string {
	items := e.Extract(text).Items()
	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}
	if items == nil {
		return []string{}
	}
	return items
}

// skillsBlock 第一个技能块中的条目
func (e *Extractor) skillsBlock(text string) []string {
	m := skillsBlockPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var out []string
	for _, raw := range itemSplitPattern.Split(m[1], -1) {
		if item := cleanItem(raw); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func cleanItem(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "-–—*• \t")
	// "Frameworks: React" 只保留冒号后面的部分
	if i := strings.Index(s, ":"); i > 0 && i <= 25 {
		s = s[i+1:]
	}
	s = strings.Trim(s, " \t()[]{}\"'")
	s = strings.TrimRight(s, ".")
	s = strings.Join(strings.Fields(s), " ")
	if n := utf8.RuneCountInString(s); n < 1 || n > maxItemLen {
		return ""
	}
	return s
}

type hit struct {
	pos  int
	end  int
	name string
}

// vocabularyHits 词表命中，按出现位置排序；同一位置长词在前
func (e *Extractor) vocabularyHits(text string) ([]hit, [][2]int) {
	var hits []hit
	var spans [][2]int
	for _, ct := range e.terms {
		first := true
		for _, loc := range ct.re.FindAllStringIndex(text, -1) {
			if !isBoundary(text, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, [2]int{loc[0], loc[1]})
			if first {
				hits = append(hits, hit{pos: loc[0], end: loc[1], name: ct.term.Name})
				first = false
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].end > hits[j].end
	})
	return hits, spans
}

// patternScan 大写多词短语、全大写缩写和带 + # . 的技术词
func (e *Extractor) patternScan(text string, covered [][2]int) []string {
	type found struct {
		pos  int
		text string
	}
	var items []found
	inVocab := func(start, end int) bool {
		for _, s := range covered {
			if start >= s[0] && end <= s[1] {
				return true
			}
		}
		return false
	}

	for _, loc := range multiWordPattern.FindAllStringIndex(text, -1) {
		phrase := strings.Join(strings.Fields(text[loc[0]:loc[1]]), " ")
		words := strings.Fields(phrase)
		if e.stop[strings.ToLower(phrase)] || e.stop[strings.ToLower(words[0])] || inVocab(loc[0], loc[1]) {
			continue
		}
		items = append(items, found{loc[0], phrase})
	}

	for _, loc := range acronymPattern.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if e.stop[strings.ToLower(word)] || inVocab(loc[0], loc[1]) || inShoutingLine(text, loc[0]) {
			continue
		}
		items = append(items, found{loc[0], word})
	}

	for _, m := range techTokenPattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		token := strings.TrimRight(text[start:end], ".")
		end = start + len(token)
		if !strings.ContainsAny(token, "+#") && !dottedPattern.MatchString(token) {
			continue
		}
		if len(token) > maxItemLen || e.stop[strings.ToLower(token)] || inVocab(start, end) {
			continue
		}
		items = append(items, found{start, token})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].pos < items[j].pos })
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.text
	}
	return out
}

// inShoutingLine 全大写且至少两个词的行，通常是姓名或标题
func inShoutingLine(text string, pos int) bool {
	start := strings.LastIndex(text[:pos], "\n") + 1
	end := strings.Index(text[pos:], "\n")
	if end < 0 {
		end = len(text)
	} else {
		end += pos
	}
	line := text[start:end]
	if len(strings.Fields(line)) < 2 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// isBoundary 命中两侧不能紧贴字母或数字
func isBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) || r == '+' || r == '#' {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
