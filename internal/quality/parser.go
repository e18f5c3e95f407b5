package quality

import (
	"regexp"
	"strconv"
	"strings"
)

const maxFeedback = 5

var (
	// 允许 "**Score:** 85" 这类 markdown 写法
	scorePattern    = regexp.MustCompile(`(?i)score:\s*\**\s*(\d+)`)
	// 编号后须跟空白，"2.5x" 这类小数不拆
	numberedPattern = regexp.MustCompile(`(?m)(?:^|\s)\d+\.\s`)
	feedbackMarker  = regexp.MustCompile(`(?i)feedback:`)
)

// parseScore 取第一个 "Score: N"，截断到 0-100；没有时返回 fallback
func parseScore(response string, fallback int) int {
	m := scorePattern.FindStringSubmatch(response)
	if len(m) < 2 {
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// 位数过多溢出
		return 100
	}
	return clampScore(n)
}

// parseFeedback 取 "Feedback:" 之后的 "- " 列表项，没有列表项时按编号拆分，最多 5 条
func parseFeedback(response string) []string {
	section := response
	if loc := feedbackMarker.FindStringIndex(response); loc != nil {
		section = response[loc[1]:]
	} else {
		section = scorePattern.ReplaceAllString(section, "")
	}
	section = strings.TrimSpace(section)

	points := make([]string, 0, maxFeedback)
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		for _, bullet := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, bullet) {
				if p := strings.TrimSpace(line[len(bullet):]); p != "" {
					points = append(points, p)
				}
				break
			}
		}
	}

	if len(points) == 0 {
		for _, part := range numberedPattern.Split(section, -1) {
			if p := strings.Join(strings.Fields(part), " "); p != "" {
				points = append(points, p)
			}
		}
	}

	if len(points) > maxFeedback {
		points = points[:maxFeedback]
	}
	return points
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
