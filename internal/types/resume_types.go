package types

import (
	"strings"
)

// SectionKey 表示简历章节的规范键
type SectionKey = string

const (
	// SectionProfile 个人简介
	SectionProfile SectionKey = "profile"
	// SectionExperience 工作经历
	SectionExperience SectionKey = "experience"
	// SectionEducation 教育经历
	SectionEducation SectionKey = "education"
	// SectionSkills 技能
	SectionSkills SectionKey = "skills"
	// SectionUnclassified 未匹配到任何标题时的全文
	SectionUnclassified SectionKey = "unclassified"
)

// CanonicalSections 规范章节键，顺序固定
var CanonicalSections = []SectionKey{SectionProfile, SectionExperience, SectionEducation, SectionSkills}

// AllSectionKeys 输出中始终存在的全部键
var AllSectionKeys = []SectionKey{SectionProfile, SectionExperience, SectionEducation, SectionSkills, SectionUnclassified}

// ParsedResume 解析后的简历
// Sections 中 AllSectionKeys 的每个键都必须存在（可以是空串）
type ParsedResume struct {
	FullText string            `json:"full_text"`
	Sections map[string]string `json:"sections"`
	Keywords []string          `json:"keywords"`
}

// Section 返回章节内容，不存在时返回空串
func (p *ParsedResume) Section(key SectionKey) string {
	if p == nil || p.Sections == nil {
		return ""
	}
	return p.Sections[key]
}

// HasSections 是否有任何规范章节非空
func (p *ParsedResume) HasSections() bool {
	for _, key := range CanonicalSections {
		if strings.TrimSpace(p.Section(key)) != "" {
			return true
		}
	}
	return false
}

// SkillSet 大小写不敏感的去重技能集合，保留首次出现时的写法和顺序
type SkillSet struct {
	index map[string]int
	items []string
}

// NewSkillSet 创建技能集合
func NewSkillSet(items ...string) *SkillSet {
	s := &SkillSet{index: make(map[string]int)}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// NormalizeSkill 技能比较用的规范形式
func NormalizeSkill(skill string) string {
	return strings.ToLower(strings.Join(strings.Fields(skill), " "))
}

// Add 添加技能，已存在（忽略大小写）时返回 false
func (s *SkillSet) Add(skill string) bool {
	skill = strings.Join(strings.Fields(skill), " ")
	if skill == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := NormalizeSkill(skill)
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, skill)
	return true
}

// Has 忽略大小写判断是否包含
func (s *SkillSet) Has(skill string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[NormalizeSkill(skill)]
	return ok
}

// Items 按首次出现顺序返回技能
func (s *SkillSet) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Len 集合大小
func (s *SkillSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Union 合并另一个集合，保留本集合的写法
func (s *SkillSet) Union(other *SkillSet) {
	for _, it := range other.Items() {
		s.Add(it)
	}
}
