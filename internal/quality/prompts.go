package quality

import (
	"fmt"
	"sort"
	"strings"

	"resume-engine/internal/types"
)

const (
	// 正文、经历摘录的字符上限
	excerptLimit = 1500
	// 每个章节的字符上限
	sectionLimit = 500
)

// responseFormat 所有维度共用的输出格式要求
const responseFormat = `Provide 3-5 specific, actionable feedback points for improvement.

Your response must be in this format:
Score: [0-100]
Feedback:
- [Feedback point 1]
- [Feedback point 2]
- [Feedback point 3]
`

// rubric 一个维度的评分说明
type rubric struct {
	role     string
	criteria []string
	subject  string
	bands    [5]string
}

var rubrics = map[types.QualityDimension]rubric{
	types.DimensionLayout: {
		role: "You are a resume format expert. Evaluate the resume's format and layout based on the following criteria:",
		criteria: []string{
			"Clear section organization",
			"Consistent spacing and margins",
			"Appropriate use of formatting (bold, italics, etc.)",
			"Professional appearance",
		},
		subject: "format and layout",
		bands: [5]string{
			"inconsistent, cluttered, hard to read",
			"some structure but significant issues",
			"readable but room for improvement",
			"clear structure, minor inconsistencies",
			"professional, consistent, optimized",
		},
	},
	types.DimensionStructure: {
		role: "You are a resume content expert. Evaluate the resume's content and structure based on:",
		criteria: []string{
			"Presence and completeness of key sections (Profile, Experience, Education, Skills)",
			"Logical flow between sections",
			"Appropriate level of detail in each section",
			"Relevance of included information",
		},
		subject: "content and structure",
		bands: [5]string{
			"missing key sections, illogical organization",
			"major gaps or irrelevant content",
			"basic sections present but lacking detail",
			"comprehensive with minor improvements needed",
			"complete, well-organized, appropriate detail",
		},
	},
	types.DimensionLanguage: {
		role: "You are a resume language expert. Evaluate the resume's language and style based on:",
		criteria: []string{
			"Use of active, precise language",
			"Grammar and spelling",
			"Consistency in tense and tone",
			"Professional vocabulary",
		},
		subject: "language and style",
		bands: [5]string{
			"frequent errors, passive voice, vague language",
			"noticeable issues affecting readability",
			"generally correct but not impactful",
			"clear, active language with minor issues",
			"polished, precise, professional",
		},
	},
	types.DimensionOutcome: {
		role: "You are a resume impact expert. Evaluate the resume's outcome orientation based on:",
		criteria: []string{
			"Focus on quantifiable achievements (metrics, KPIs, percentages)",
			"Clear demonstration of impact and responsibilities",
			"Result-oriented language",
			"Evidence of contributions to business goals",
		},
		subject: "outcome orientation",
		bands: [5]string{
			"no achievements, vague descriptions of duties",
			"minimal results, mostly task-focused",
			"some achievements but lacking metrics",
			"clear accomplishments with some quantification",
			"strong metrics, clear impact demonstration",
		},
	},
}

var bandLabels = [5]string{
	"0-20: Poor",
	"21-40: Below Average",
	"41-60: Average",
	"61-80: Good",
	"81-100: Excellent",
}

// buildPrompt 按维度组装提示词
func buildPrompt(dim types.QualityDimension, parsed *types.ParsedResume, layout *types.LayoutMetrics) (string, error) {
	r, ok := rubrics[dim]
	if !ok {
		return "", fmt.Errorf("未知的质量维度: %s", dim)
	}

	var b strings.Builder
	b.WriteString(r.role)
	b.WriteByte('\n')
	for _, c := range r.criteria {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	switch dim {
	case types.DimensionLayout:
		b.WriteString("Resume text:\n")
		writeLayoutMetrics(&b, layout)
		b.WriteString("\n")
		b.WriteString(excerpt(resumeText(parsed), excerptLimit))
	case types.DimensionStructure:
		b.WriteString("Resume sections:\n")
		writeSections(&b, parsed)
	case types.DimensionLanguage:
		b.WriteString("Resume text:\n\n")
		b.WriteString(excerpt(resumeText(parsed), excerptLimit))
	case types.DimensionOutcome:
		b.WriteString("Experience section:\n\n")
		exp := strings.TrimSpace(parsed.Section(types.SectionExperience))
		if exp == "" {
			exp = "(no experience section found)"
		}
		b.WriteString(excerpt(exp, excerptLimit))
	}

	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Rate the %s on a scale from 0-100, where:\n", r.subject)
	for i, label := range bandLabels {
		fmt.Fprintf(&b, "%s (%s)\n", label, r.bands[i])
	}
	b.WriteByte('\n')
	b.WriteString(responseFormat)
	return b.String(), nil
}

// writeLayoutMetrics 版面指标，没有时省略
func writeLayoutMetrics(b *strings.Builder, layout *types.LayoutMetrics) {
	if layout == nil {
		return
	}
	b.WriteString("\nLayout metrics:\n")
	kind := string(layout.DocumentKind)
	if kind == "" {
		kind = "unknown"
	}
	fmt.Fprintf(b, "PDF type: %s\n", kind)
	m := layout.Margins
	fmt.Fprintf(b, "Margins: left=%.1f, right=%.1f, top=%.1f, bottom=%.1f\n", m.Left, m.Right, m.Top, m.Bottom)
	if len(layout.FontSizes) > 0 {
		sizes := make([]string, len(layout.FontSizes))
		for i, s := range layout.FontSizes {
			sizes[i] = fmt.Sprintf("%.1f", s)
		}
		fmt.Fprintf(b, "Font sizes: %s\n", strings.Join(sizes, ", "))
	}
	if layout.ColumnCount > 0 {
		fmt.Fprintf(b, "Estimated columns: %d\n", layout.ColumnCount)
	}
	if layout.ConfidenceTier != "" {
		fmt.Fprintf(b, "Measurement confidence: %s\n", layout.ConfidenceTier)
	}
}

// writeSections 规范章节在前，其余按键名排序；空章节也列出
func writeSections(b *strings.Builder, parsed *types.ParsedResume) {
	keys := append([]string(nil), types.AllSectionKeys...)
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	var extra []string
	if parsed != nil {
		for k := range parsed.Sections {
			if !known[k] {
				extra = append(extra, k)
			}
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	for _, k := range keys {
		content := strings.TrimSpace(parsed.Section(k))
		if k == types.SectionUnclassified && content == "" {
			continue
		}
		if content == "" {
			content = "(empty)"
		}
		fmt.Fprintf(b, "\n--- %s ---\n%s\n", strings.ToUpper(k), excerpt(content, sectionLimit))
	}
}

func resumeText(parsed *types.ParsedResume) string {
	if parsed == nil {
		return ""
	}
	return strings.TrimSpace(parsed.FullText)
}

// excerpt 超过 limit 个字符时截断并追加 "..."
func excerpt(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
