package biz

import (
	"strings"
)

const contextSeparator = "\n---\n"

// BuildPrompt 按固定顺序组装用户提示词：CONTEXT、CONVERSATION HISTORY、QUESTION。
// contexts 保持检索顺序，history 保持时间顺序。
func BuildPrompt(contexts []string, history []Turn, query string) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the CONTEXT and CONVERSATION HISTORY below.\n\n")

	b.WriteString("CONTEXT:\n")
	b.WriteString(strings.Join(contexts, contextSeparator))

	b.WriteString("\n\nCONVERSATION HISTORY:\n")
	for i, t := range history {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Text)
	}

	b.WriteString("\n\nQUESTION:\n")
	b.WriteString(query)
	return b.String()
}
