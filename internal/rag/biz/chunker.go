package biz

import (
	"strings"
	"unicode/utf8"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// Strategy 分块策略。
type Strategy string

const (
	// StrategySliding 固定大小的滑动窗口。
	StrategySliding Strategy = "sliding"
	// StrategySentences 按句子边界贪心合并。
	StrategySentences Strategy = "sentences"
)

// ParseStrategy 解析策略名称，未知名称返回 ErrRAGUnsupportedInput。
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategySliding, StrategySentences:
		return Strategy(name), nil
	}
	return "", errors.ErrRAGUnsupportedInput.WithMessagef("unsupported chunking strategy %q", name)
}

// ValidateChunkParams 校验分块参数。overlap 仅对滑动窗口有意义。
func ValidateChunkParams(strategy Strategy, size, overlap int) error {
	if size <= 0 {
		return errors.ErrRAGValidation.WithMessagef("chunk size must be positive, got %d", size)
	}
	if strategy != StrategySliding {
		return nil
	}
	if overlap < 0 {
		return errors.ErrRAGValidation.WithMessagef("overlap must not be negative, got %d", overlap)
	}
	if overlap >= size {
		return errors.ErrRAGValidation.WithMessagef("overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return nil
}

// Slide 以 Unicode 字符为单位切出固定大小、带重叠的窗口。
// 末个窗口到达文本结尾后停止；空文本返回空序列。
func Slide(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunkParams(StrategySliding, size, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	var chunks []string
	for start := 0; ; {
		end := min(start+size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
		start = max(0, end-overlap)
	}
	return chunks, nil
}

// BySentence 使用默认的 RuleSplitter 按句子分块。
func BySentence(text string, maxChunkSize int) ([]string, error) {
	return Chunker{Splitter: RuleSplitter{}}.BySentence(text, maxChunkSize)
}

// Chunker 持有句子切分能力。零值使用 RuleSplitter。
type Chunker struct {
	Splitter SentenceSplitter
}

// Chunk 按策略分块。
func (c Chunker) Chunk(text string, strategy Strategy, size, overlap int) ([]string, error) {
	switch strategy {
	case StrategySliding:
		return Slide(text, size, overlap)
	case StrategySentences:
		return c.BySentence(text, size)
	}
	return nil, errors.ErrRAGUnsupportedInput.WithMessagef("unsupported chunking strategy %q", strategy)
}

// BySentence 贪心合并句子：缓冲区按单空格连接后的长度计算，
// 加入下一句会超过 maxChunkSize 且缓冲区非空时先输出缓冲区。
// 单句超过上限时独立成块。
func (c Chunker) BySentence(text string, maxChunkSize int) ([]string, error) {
	if err := ValidateChunkParams(StrategySentences, maxChunkSize, 0); err != nil {
		return nil, err
	}

	splitter := c.Splitter
	if splitter == nil {
		splitter = RuleSplitter{}
	}

	var (
		chunks []string
		buf    []string
		bufLen int
	)
	flush := func() {
		if chunk := Normalize(strings.Join(buf, " ")); chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf, bufLen = buf[:0], 0
	}

	for _, s := range splitter.Split(text) {
		sl := utf8.RuneCountInString(s)
		if len(buf) > 0 && bufLen+1+sl > maxChunkSize {
			flush()
		}
		if len(buf) > 0 {
			bufLen++
		}
		buf = append(buf, s)
		bufLen += sl
	}
	if len(buf) > 0 {
		flush()
	}
	return chunks, nil
}
