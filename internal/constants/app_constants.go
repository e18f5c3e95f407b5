package constants

import "time"

const (
	// ServiceName 服务名，用于日志与链路追踪
	ServiceName = "resume-engine"

	// DefaultSkillsTopN ExtractSkills 默认返回的技能数
	DefaultSkillsTopN = 10

	// DefaultKeywordsTopN 解析结果中关键词的默认数量
	DefaultKeywordsTopN = 10

	// DefaultEmbeddingCacheTTL 向量缓存默认过期时间
	DefaultEmbeddingCacheTTL = 24 * time.Hour

	// DocumentObjectPrefix MinIO 中上传文档的对象前缀
	// 格式: documents/{uploadID}/original{ext}
	DocumentObjectPrefix = "documents"
)
