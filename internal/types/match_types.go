package types

// JobPosting 岗位的最小外部形态，其他字段透传
type JobPosting struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Requirements string         `json:"requirements,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// MatchResult 一份简历对一个岗位的匹配结果
type MatchResult struct {
	JobID                  string   `json:"job_id"`
	JobTitle               string   `json:"job_title"`
	OverallScore           int      `json:"overall_score"`
	SkillMatchPercentage   int      `json:"skill_match_percentage"`
	MatchingSkills         []string `json:"matching_skills"`
	MissingSkills          []string `json:"missing_skills"`
	ImprovementSuggestions []string `json:"improvement_suggestions"`
	JobSummary             string   `json:"job_summary"`

	// 诊断字段
	TransformerScore float64  `json:"transformer_score"`
	ExternalScore    *float64 `json:"external_score,omitempty"`
}
