package match

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"resume-engine/internal/section"
	"resume-engine/internal/types"
)

const (
	summaryMaxLen    = 200
	summarySentences = 3
)

var (
	sentenceSplitPattern = regexp.MustCompile(`[.!?]`)
	paragraphPattern     = regexp.MustCompile(`\n[ \t]*\n`)
	// 描述里的 "Requirements:" 块，直到下一个空行
	requirementsBlockPattern = regexp.MustCompile(`(?is)(?:^|\n)[ \t]*(?:requirements|qualifications|anforderungen|your profile|dein profil|ihr profil)[ \t]*:?[ \t]*\n(.*?)(?:\n[ \t]*\n|\z)`)
)

// jobSummary 第一段的前三句，超过 200 字符时截断为 197 + "..."
func jobSummary(description string) string {
	text := strings.TrimSpace(strings.ReplaceAll(description, "\r\n", "\n"))
	if text == "" {
		return ""
	}
	first := strings.TrimSpace(paragraphPattern.Split(text, 2)[0])

	var sentences []string
	for _, s := range sentenceSplitPattern.Split(first, -1) {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		sentences = append(sentences, s)
		if len(sentences) == summarySentences {
			break
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	summary := strings.Join(sentences, ". ") + "."
	if utf8.RuneCountInString(summary) > summaryMaxLen {
		summary = string([]rune(summary)[:summaryMaxLen-3]) + "..."
	}
	return summary
}

// requirementsText 优先使用岗位的 Requirements 字段，否则从描述中截取
func requirementsText(job types.JobPosting) string {
	if r := strings.TrimSpace(job.Requirements); r != "" {
		return r
	}
	desc := strings.ReplaceAll(job.Description, "\r\n", "\n")
	if m := requirementsBlockPattern.FindStringSubmatch(desc); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// 要求块中不参与重合度计算的常见词
var requirementStopwords = map[string]bool{
	"experience": true, "years": true, "with": true, "knowledge": true, "understanding": true,
	"familiarity": true, "strong": true, "ability": true, "skills": true, "good": true,
	"working": true, "including": true, "similar": true, "such": true, "plus": true,
	"erfahrung": true, "kenntnisse": true, "jahre": true, "sehr": true, "gute": true,
}

type suggestionInput struct {
	jobTitle      string
	missing       []string
	skillPercent  int
	hasExperience bool
	requirements  string
	resumeText    string
}

// ruleSuggestions 外部服务没有给出建议时的规则建议
func ruleSuggestions(in suggestionInput, limit int) []string {
	var out []string

	if n := len(in.missing); n > 0 {
		shown := in.missing
		if len(shown) > 3 {
			shown = shown[:3]
		}
		out = append(out, fmt.Sprintf("Highlight experience with %s if you have it, or consider building it.", strings.Join(shown, ", ")))
		if n > 3 {
			out = append(out, fmt.Sprintf("%d skills from the posting are not visible in your resume; close the most critical gaps through projects, courses or certifications.", n))
		}
	}

	if !in.hasExperience {
		out = append(out, "Add a dedicated experience section with roles, dates and measurable achievements.")
	}

	if uncovered, ratio := requirementOverlap(in.requirements, in.resumeText); len(uncovered) > 0 && ratio < 0.5 {
		if len(uncovered) > 3 {
			uncovered = uncovered[:3]
		}
		out = append(out, fmt.Sprintf("Mirror the wording of the job requirements, e.g. %s.", strings.Join(uncovered, ", ")))
	}

	if in.skillPercent < 50 {
		title := strings.TrimSpace(in.jobTitle)
		if title == "" {
			title = "this role"
		}
		out = append(out, fmt.Sprintf("Move the skills most relevant to %s to the top of your skills section.", title))
	}

	if len(out) == 0 {
		out = append(out, "Quantify your achievements with metrics to strengthen an already good match.")
	}
	return capList(out, limit)
}

// requirementOverlap 要求块关键词在简历中出现的比例，以及未出现的关键词
func requirementOverlap(requirements, resumeText string) ([]string, float64) {
	if strings.TrimSpace(requirements) == "" {
		return nil, 1
	}
	var terms []string
	for _, w := range section.Keywords(requirements, 0) {
		if !requirementStopwords[w] {
			terms = append(terms, w)
		}
	}
	if len(terms) == 0 {
		return nil, 1
	}

	resumeWords := make(map[string]bool)
	for _, w := range section.Keywords(resumeText, 0) {
		resumeWords[w] = true
	}

	var uncovered []string
	for _, t := range terms {
		if !resumeWords[t] {
			uncovered = append(uncovered, t)
		}
	}
	return uncovered, float64(len(terms)-len(uncovered)) / float64(len(terms))
}
