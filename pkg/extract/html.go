package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// extractHTML 优先使用 readability 提取正文，失败或为空时退回到 goquery 读取 body 文本
func extractHTML(data []byte, pageURL string) (title, text string, err error) {
	var parsed *url.URL
	if u, perr := url.Parse(pageURL); perr == nil {
		parsed = u
	}

	article, rerr := readability.FromReader(bytes.NewReader(data), parsed)
	if rerr == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
	}
	if text != "" && title != "" {
		return title, text, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if text == "" {
		doc.Find("script, style, noscript").Remove()
		text = collapseBlankLines(doc.Find("body").Text())
	}
	return title, text, nil
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	res := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return strings.Join(res, "\n")
}
