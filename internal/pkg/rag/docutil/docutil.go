// Package docutil 提供上传文档的文本抽取。
package docutil

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

// 支持的文档类型。
const (
	KindPDF = "pdf"
	KindTXT = "txt"
)

// DetectKind 根据 Content-Type 或文件后缀判断文档类型，不支持时返回空字符串。
func DetectKind(filename, contentType string) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case mediaType == "application/pdf" || ext == ".pdf":
		return KindPDF
	case mediaType == "text/plain" || ext == ".txt":
		return KindTXT
	default:
		return ""
	}
}

// Extract 从上传的文件内容中抽取纯文本。
// PDF 逐页抽取并以空行连接，解析失败的页面被跳过；TXT 按 UTF-8 解码并丢弃非法字节。
func Extract(filename, contentType string, data []byte) (string, error) {
	switch DetectKind(filename, contentType) {
	case KindPDF:
		return extractPDF(data)
	case KindTXT:
		return strings.ToValidUTF8(string(data), ""), nil
	default:
		return "", errors.ErrRAGUnsupportedInput.WithMessagef("unsupported file type: %s", filename)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// 畸形 PDF 可能让解析器 panic。
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrRAGUnsupportedInput.WithMessagef("invalid pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.ErrRAGUnsupportedInput.WithCause(fmt.Errorf("invalid pdf: %w", err))
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
	}
	return b.String(), nil
}
