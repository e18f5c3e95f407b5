package skills

// Category 词表分类
type Category string

const (
	CategoryLanguage     Category = "language"
	CategoryFramework    Category = "framework"
	CategoryCloud        Category = "cloud"
	CategoryData         Category = "data"
	CategorySoft         Category = "soft"
	CategoryProductivity Category = "productivity"
)

// Term 词表中的一个技能
// CaseSensitive 用于和普通英文单词同形的词，例如 Go
type Term struct {
	Name          string
	Category      Category
	CaseSensitive bool
}

// DefaultVocabulary 内置技能词表
var DefaultVocabulary = []Term{
	// 编程语言
	{Name: "Python", Category: CategoryLanguage},
	{Name: "Java", Category: CategoryLanguage},
	{Name: "JavaScript", Category: CategoryLanguage},
	{Name: "TypeScript", Category: CategoryLanguage},
	{Name: "Go", Category: CategoryLanguage, CaseSensitive: true},
	{Name: "Golang", Category: CategoryLanguage},
	{Name: "Rust", Category: CategoryLanguage, CaseSensitive: true},
	{Name: "C++", Category: CategoryLanguage},
	{Name: "C#", Category: CategoryLanguage},
	{Name: "Ruby", Category: CategoryLanguage},
	{Name: "PHP", Category: CategoryLanguage},
	{Name: "Kotlin", Category: CategoryLanguage},
	{Name: "Swift", Category: CategoryLanguage, CaseSensitive: true},
	{Name: "Scala", Category: CategoryLanguage},
	{Name: "SQL", Category: CategoryLanguage},
	{Name: "HTML", Category: CategoryLanguage},
	{Name: "HTML5", Category: CategoryLanguage},
	{Name: "CSS", Category: CategoryLanguage},
	{Name: "CSS3", Category: CategoryLanguage},
	{Name: "Bash", Category: CategoryLanguage},
	{Name: "MATLAB", Category: CategoryLanguage},
	{Name: "Perl", Category: CategoryLanguage},
	{Name: "Dart", Category: CategoryLanguage, CaseSensitive: true},
	{Name: "Elixir", Category: CategoryLanguage},
	{Name: "Haskell", Category: CategoryLanguage},

	// 框架和库
	{Name: "React", Category: CategoryFramework},
	{Name: "React Native", Category: CategoryFramework},
	{Name: "Angular", Category: CategoryFramework},
	{Name: "Vue", Category: CategoryFramework},
	{Name: "Vue.js", Category: CategoryFramework},
	{Name: "Next.js", Category: CategoryFramework},
	{Name: "Node.js", Category: CategoryFramework},
	{Name: "Express", Category: CategoryFramework, CaseSensitive: true},
	{Name: "Django", Category: CategoryFramework},
	{Name: "Flask", Category: CategoryFramework},
	{Name: "FastAPI", Category: CategoryFramework},
	{Name: "Spring", Category: CategoryFramework, CaseSensitive: true},
	{Name: "Spring Boot", Category: CategoryFramework},
	{Name: "Rails", Category: CategoryFramework, CaseSensitive: true},
	{Name: ".NET", Category: CategoryFramework},
	{Name: "ASP.NET", Category: CategoryFramework},
	{Name: "Redux", Category: CategoryFramework},
	{Name: "MobX", Category: CategoryFramework},
	{Name: "GraphQL", Category: CategoryFramework},
	{Name: "REST", Category: CategoryFramework, CaseSensitive: true},
	{Name: "gRPC", Category: CategoryFramework},
	{Name: "Jest", Category: CategoryFramework},
	{Name: "Pytest", Category: CategoryFramework},
	{Name: "TensorFlow", Category: CategoryFramework},
	{Name: "PyTorch", Category: CategoryFramework},
	{Name: "scikit-learn", Category: CategoryFramework},
	{Name: "Pandas", Category: CategoryFramework},
	{Name: "NumPy", Category: CategoryFramework},
	{Name: "Tailwind", Category: CategoryFramework},
	{Name: "Bootstrap", Category: CategoryFramework, CaseSensitive: true},
	{Name: "Material UI", Category: CategoryFramework},

	// 云和基础设施
	{Name: "AWS", Category: CategoryCloud},
	{Name: "Azure", Category: CategoryCloud},
	{Name: "GCP", Category: CategoryCloud},
	{Name: "Google Cloud", Category: CategoryCloud},
	{Name: "Docker", Category: CategoryCloud},
	{Name: "Kubernetes", Category: CategoryCloud},
	{Name: "Terraform", Category: CategoryCloud},
	{Name: "Ansible", Category: CategoryCloud},
	{Name: "Helm", Category: CategoryCloud},
	{Name: "Jenkins", Category: CategoryCloud},
	{Name: "GitHub Actions", Category: CategoryCloud},
	{Name: "GitLab CI", Category: CategoryCloud},
	{Name: "CI/CD", Category: CategoryCloud},
	{Name: "Linux", Category: CategoryCloud},
	{Name: "Nginx", Category: CategoryCloud},
	{Name: "Prometheus", Category: CategoryCloud},
	{Name: "Grafana", Category: CategoryCloud},
	{Name: "Microservices", Category: CategoryCloud},
	{Name: "Lambda", Category: CategoryCloud, CaseSensitive: true},
	{Name: "EC2", Category: CategoryCloud},
	{Name: "S3", Category: CategoryCloud},

	// 数据
	{Name: "PostgreSQL", Category: CategoryData},
	{Name: "MySQL", Category: CategoryData},
	{Name: "MongoDB", Category: CategoryData},
	{Name: "Redis", Category: CategoryData},
	{Name: "Elasticsearch", Category: CategoryData},
	{Name: "Kafka", Category: CategoryData},
	{Name: "RabbitMQ", Category: CategoryData},
	{Name: "Spark", Category: CategoryData, CaseSensitive: true},
	{Name: "Hadoop", Category: CategoryData},
	{Name: "Airflow", Category: CategoryData},
	{Name: "Snowflake", Category: CategoryData, CaseSensitive: true},
	{Name: "Tableau", Category: CategoryData},
	{Name: "Power BI", Category: CategoryData},
	{Name: "Machine Learning", Category: CategoryData},
	{Name: "Deep Learning", Category: CategoryData},
	{Name: "Data Analysis", Category: CategoryData},
	{Name: "NLP", Category: CategoryData},
	{Name: "ETL", Category: CategoryData},

	// 软技能
	{Name: "Leadership", Category: CategorySoft},
	{Name: "Communication", Category: CategorySoft},
	{Name: "Teamwork", Category: CategorySoft},
	{Name: "Problem Solving", Category: CategorySoft},
	{Name: "Problem-Solving", Category: CategorySoft},
	{Name: "Project Management", Category: CategorySoft},
	{Name: "Mentoring", Category: CategorySoft},
	{Name: "Agile", Category: CategorySoft},
	{Name: "Scrum", Category: CategorySoft},
	{Name: "Kanban", Category: CategorySoft},
	{Name: "Stakeholder Management", Category: CategorySoft},
	{Name: "Time Management", Category: CategorySoft},
	{Name: "Critical Thinking", Category: CategorySoft},

	// 办公和协作工具
	{Name: "Git", Category: CategoryProductivity},
	{Name: "GitHub", Category: CategoryProductivity},
	{Name: "GitLab", Category: CategoryProductivity},
	{Name: "Jira", Category: CategoryProductivity},
	{Name: "Confluence", Category: CategoryProductivity},
	{Name: "Slack", Category: CategoryProductivity, CaseSensitive: true},
	{Name: "Figma", Category: CategoryProductivity},
	{Name: "Excel", Category: CategoryProductivity},
	{Name: "PowerPoint", Category: CategoryProductivity},
	{Name: "Microsoft Office", Category: CategoryProductivity},
	{Name: "Notion", Category: CategoryProductivity, CaseSensitive: true},
	{Name: "SAP", Category: CategoryProductivity},
}

// defaultStopwords 模式扫描中不算作技能的大写词，小写存储
var defaultStopwords = []string{
	// 代词和冠词
	"i", "we", "you", "he", "she", "they", "it", "our", "your", "my", "their", "us",
	"the", "a", "an", "this", "that", "these", "those", "and", "or", "of", "in", "on", "at", "for", "with", "to",
	"der", "die", "das", "ein", "eine", "wir", "sie", "und",
	// 月份
	"january", "february", "march", "april", "may", "june", "july", "august",
	"september", "october", "november", "december",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	"januar", "februar", "märz", "mai", "juni", "juli", "oktober", "dezember",
	// 星期
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	// 章节标题
	"profile", "summary", "experience", "work experience", "employment", "education", "academic",
	"skills", "competencies", "expertise", "requirements", "responsibilities", "nice to have",
	"profil", "zusammenfassung", "berufserfahrung", "arbeitserfahrung", "ausbildung", "bildung",
	"studium", "kenntnisse", "fähigkeiten", "kompetenzen",
	// 其他常见大写词
	"present", "current", "today", "cv", "resume", "phone", "email", "address",
	"inc", "ltd", "gmbh", "ag", "llc", "usa", "uk", "eu",
}
