package section

import (
	"regexp"
	"strings"

	"resume-engine/internal/constants"
	"resume-engine/internal/types"
)

// Segmenter 按标题把纯文本切分为章节，只看文本，不看几何信息
type Segmenter struct {
	table  HeaderTable
	keyIdx map[int]types.SectionKey
	re     *regexp.Regexp
}

// NewSegmenter 用给定标题表创建切分器，table 为 nil 时使用默认表
func NewSegmenter(table HeaderTable) (*Segmenter, error) {
	if table == nil {
		table = DefaultHeaderTable
	}
	re, err := table.compile()
	if err != nil {
		return nil, err
	}
	s := &Segmenter{table: table, re: re, keyIdx: make(map[int]types.SectionKey)}
	for i, name := range re.SubexpNames() {
		if name != "" {
			s.keyIdx[i] = name
		}
	}
	return s, nil
}

var defaultSegmenter = mustSegmenter(DefaultHeaderTable)

func mustSegmenter(t HeaderTable) *Segmenter {
	s, err := NewSegmenter(t)
	if err != nil {
		panic(err)
	}
	return s
}

// Default 默认双语切分器
func Default() *Segmenter {
	return defaultSegmenter
}

// Segment 返回章节映射，五个键始终存在
// 没有匹配到任何标题时全文放入 unclassified；同一键重复出现时内容追加
func (s *Segmenter) Segment(text string) map[string]string {
	out := make(map[string]string, len(types.AllSectionKeys))
	for _, key := range types.AllSectionKeys {
		out[key] = ""
	}

	text = normalizeNewlines(text)
	matches := s.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		out[types.SectionUnclassified] = strings.TrimSpace(text)
		return out
	}

	for i, m := range matches {
		key := s.keyOf(m)
		if key == "" {
			continue
		}
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[m[1]:end])
		if content == "" {
			continue
		}
		if out[key] != "" {
			out[key] += "\n\n" + content
		} else {
			out[key] = content
		}
	}
	return out
}

// Parse 全文、章节和关键词
func (s *Segmenter) Parse(text string, topN int) *types.ParsedResume {
	if topN <= 0 {
		topN = constants.DefaultKeywordsTopN
	}
	return &types.ParsedResume{
		FullText: text,
		Sections: s.Segment(text),
		Keywords: Keywords(text, topN),
	}
}

func (s *Segmenter) keyOf(m []int) types.SectionKey {
	for idx, key := range s.keyIdx {
		if 2*idx+1 < len(m) && m[2*idx] >= 0 {
			return key
		}
	}
	return ""
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
