package extract

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractText 用于纯文本与 markdown，markdown 原样交给模型
func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", errors.New("text content is not valid utf-8")
	}
	return string(data), nil
}
