package biz

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceSplitter 将文本切分为句子序列。
type SentenceSplitter interface {
	Split(text string) []string
}

// RuleSplitter 基于标点规则切分句子：一段 . ! ? 及其后的右引号或右括号，
// 后接空白或文本结尾即为句子边界。末尾没有终止标点的片段也算一句。
type RuleSplitter struct{}

var _ SentenceSplitter = RuleSplitter{}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’':
		return true
	}
	return false
}

// Split 返回去除首尾空白后的非空句子。
func (RuleSplitter) Split(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isTerminal(r) {
			i += size
			continue
		}

		end := i + size
		for end < len(text) {
			nr, ns := utf8.DecodeRuneInString(text[end:])
			if !isTerminal(nr) && !isCloser(nr) {
				break
			}
			end += ns
		}

		if end == len(text) {
			i = end
			break
		}
		if nr, _ := utf8.DecodeRuneInString(text[end:]); unicode.IsSpace(nr) {
			if s := strings.TrimSpace(text[start:end]); s != "" {
				out = append(out, s)
			}
			start = end
		}
		i = end
	}

	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
