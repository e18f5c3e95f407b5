package match

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"resume-engine/internal/types"
)

// holisticPromptTemplate 依次填入岗位标题、描述、要求和简历文本
const holisticPromptTemplate = `You are an expert recruiter. Compare the resume with the job posting and assess how well the candidate fits.

Job Title: %s

Job Description:
%s

Requirements:
%s

Resume:
%s

Respond with a single JSON object and nothing else, using exactly these fields:
{
  "match_score": <number between 0 and 1>,
  "missing_skills": ["skill required by the job but absent from the resume", "..."],
  "improvement_suggestions": ["specific, actionable change to the resume", "..."]
}`

// HolisticAssessment 外部服务的整体评估
type HolisticAssessment struct {
	MatchScore             *float64 `json:"-"`
	MissingSkills          []string `json:"missing_skills"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
}

type holisticPayload struct {
	MatchScore             flexibleFloat `json:"match_score"`
	MissingSkills          []string      `json:"missing_skills"`
	ImprovementSuggestions []string      `json:"improvement_suggestions"`
}

// flexibleFloat 兼容数字、数字字符串和 "72%" 这类写法
type flexibleFloat struct {
	value *float64
}

func (f *flexibleFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("match_score 不是数字: %s", string(data))
	}
	if percent {
		v /= 100
	}
	f.value = &v
	return nil
}

// buildHolisticPrompt 简历文本按字符截断到 limit
func buildHolisticPrompt(job types.JobPosting, requirements, resumeText string, limit int) string {
	if requirements == "" {
		requirements = "(not specified)"
	}
	return fmt.Sprintf(holisticPromptTemplate,
		strings.TrimSpace(job.Title),
		strings.TrimSpace(job.Description),
		strings.TrimSpace(requirements),
		truncateRunes(resumeText, limit))
}

// parseHolisticResponse 取第一个完整 JSON 对象，失败时先修复引号再试一次
func parseHolisticResponse(content string) (*HolisticAssessment, error) {
	content = strings.TrimPrefix(strings.TrimSpace(content), "\uFEFF")

	jsonStr := extractJSONObject(content)
	if jsonStr == "" {
		return nil, types.NewParseError("holistic", "响应中没有 JSON 对象")
	}
	if !utf8.ValidString(jsonStr) {
		jsonStr = strings.ToValidUTF8(jsonStr, "")
	}

	var payload holisticPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		fixed := sanitizeJSON(jsonStr)
		if fixErr := json.Unmarshal([]byte(fixed), &payload); fixErr != nil {
			return nil, types.NewParseError("holistic", fmt.Sprintf("解析 JSON 失败: %v", err))
		}
	}

	out := &HolisticAssessment{
		MissingSkills:          cleanStrings(payload.MissingSkills),
		ImprovementSuggestions: cleanStrings(payload.ImprovementSuggestions),
	}
	if v := payload.MatchScore.value; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		score := *v
		// 1 到 100 之间按百分制理解
		if score > 1 && score <= 100 {
			score /= 100
		}
		score = clamp01(score)
		out.MatchScore = &score
	}
	return out, nil
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONObject 优先取 ```json 代码块，否则取第一个括号平衡的对象
// 字符串字面量内的括号不计数
func extractJSONObject(text string) string {
	if m := fencedJSONPattern.FindStringSubmatch(text); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inStr:
			escaped = true
		case c == '"':
			inStr = !inStr
		case inStr:
		case c == '{':
			level++
		case c == '}':
			level--
			if level == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeJSON 把字符串内部未转义的双引号改写为 \"
// 下一个非空白字符是 : , ] } 时才认为是字符串结束
func sanitizeJSON(src string) string {
	var b strings.Builder
	inStr := false
	escaped := false

	for i := 0; i < len(src); i++ {
		c := src[i]

		switch {
		case c == '"' && !escaped:
			if !inStr {
				inStr = true
				b.WriteByte(c)
				break
			}
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\n' || src[j] == '\r') {
				j++
			}
			if j >= len(src) || src[j] == ':' || src[j] == ',' || src[j] == ']' || src[j] == '}' {
				inStr = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
			escaped = false
		case c == '\\' && !escaped:
			escaped = true
			b.WriteByte(c)
		default:
			b.WriteByte(c)
			escaped = false
		}
	}
	return b.String()
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
