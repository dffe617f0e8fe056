package extract

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	objectstorage "github.com/quka-ai/synthesis/pkg/object-storage"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const DEFAULT_MAX_BYTES = 50 << 20

// ObjectFetcher 用于拉取 s3://bucket/key 形式的输入
type ObjectFetcher interface {
	Download(ctx context.Context, bucket, key string) (*objectstorage.Object, error)
}

// Document 从一个地址中提取出的文本
type Document struct {
	Source      string
	Title       string
	ContentType string
	Text        string
}

type Extractor struct {
	client   *http.Client
	objects  ObjectFetcher
	maxBytes int64
}

type Option func(*Extractor)

func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) {
		e.client = c
	}
}

func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxBytes = n
		}
	}
}

// New objects 可以为空，此时 s3:// 输入会被拒绝
func New(objects ObjectFetcher, opts ...Option) *Extractor {
	e := &Extractor{
		client:   &http.Client{Timeout: time.Minute},
		objects:  objects,
		maxBytes: DEFAULT_MAX_BYTES,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Resolve 把输入中的地址替换为提取出的文本，普通文本原样保留，顺序不变
func (e *Extractor) Resolve(ctx context.Context, inputs []string) ([]string, error) {
	res := make([]string, len(inputs))
	for i, in := range inputs {
		if !utils.IsURL(in) {
			res[i] = in
			continue
		}
		doc, err := e.Extract(ctx, strings.TrimSpace(in))
		if err != nil {
			return nil, errors.Trace("Extractor.Resolve", err)
		}
		slog.Debug("source extracted", slog.String("source", doc.Source), slog.String("content_type", doc.ContentType), slog.Int("length", len(doc.Text)))
		res[i] = doc.Text
	}
	return res, nil
}

func (e *Extractor) Extract(ctx context.Context, rawURL string) (*Document, error) {
	body, contentType, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, errors.New("Extractor.Extract.fetch", i18n.ERROR_CONTENT_EXTRACTION, err).Kind(errors.KindContentExtraction)
	}

	return parse(rawURL, path.Base(strings.SplitN(rawURL, "?", 2)[0]), contentType, body)
}

// ExtractFile 读取本地文件，格式只由扩展名和内容决定
func (e *Extractor) ExtractFile(filename string) (*Document, error) {
	body, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New("Extractor.ExtractFile.ReadFile", i18n.ERROR_CONTENT_EXTRACTION, err).Kind(errors.KindContentExtraction)
	}
	if int64(len(body)) > e.maxBytes {
		return nil, errors.New("Extractor.ExtractFile", i18n.ERROR_CONTENT_EXTRACTION,
			fmt.Errorf("content of %s exceeds %d bytes", filename, e.maxBytes)).Kind(errors.KindContentExtraction)
	}
	return parse(filename, filepath.Base(filename), "", body)
}

func parse(source, name, contentType string, body []byte) (*Document, error) {
	var err error
	format := detectFormat(contentType, name, body)

	doc := &Document{
		Source:      source,
		ContentType: string(format),
	}
	switch format {
	case FORMAT_PDF:
		doc.Text, err = extractPDF(body)
	case FORMAT_DOCX:
		doc.Text, err = extractDocx(body)
	case FORMAT_HTML:
		doc.Title, doc.Text, err = extractHTML(body, source)
	case FORMAT_MARKDOWN, FORMAT_TEXT:
		doc.Text, err = extractText(body)
	default:
		return nil, errors.New("Extractor.Extract.detectFormat", i18n.ERROR_UNSUPPORTED_CONTENT_TYPE,
			fmt.Errorf("unsupported content type %q for %s", contentType, source)).Kind(errors.KindContentExtraction)
	}
	if err != nil {
		return nil, errors.New("Extractor.Extract."+string(format), i18n.ERROR_CONTENT_EXTRACTION, err).Kind(errors.KindContentExtraction)
	}

	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return nil, errors.New("Extractor.Extract.empty", i18n.ERROR_CONTENT_EXTRACTION,
			fmt.Errorf("no text content found in %s", source)).Kind(errors.KindContentExtraction)
	}
	return doc, nil
}

// Format 支持的文档格式
type Format string

const (
	FORMAT_UNKNOWN  Format = ""
	FORMAT_PDF      Format = "pdf"
	FORMAT_DOCX     Format = "docx"
	FORMAT_MARKDOWN Format = "markdown"
	FORMAT_TEXT     Format = "text"
	FORMAT_HTML     Format = "html"
)

var mediaTypeFormats = map[string]Format{
	"application/pdf": FORMAT_PDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FORMAT_DOCX,
	"text/markdown":         FORMAT_MARKDOWN,
	"text/x-markdown":       FORMAT_MARKDOWN,
	"text/plain":            FORMAT_TEXT,
	"text/html":             FORMAT_HTML,
	"application/xhtml+xml": FORMAT_HTML,
}

var extFormats = map[string]Format{
	".pdf":      FORMAT_PDF,
	".docx":     FORMAT_DOCX,
	".md":       FORMAT_MARKDOWN,
	".markdown": FORMAT_MARKDOWN,
	".txt":      FORMAT_TEXT,
	".html":     FORMAT_HTML,
	".htm":      FORMAT_HTML,
}

// detectFormat 依次参考响应头、文件扩展名和内容探测
func detectFormat(contentType, name string, body []byte) Format {
	if f := formatOfMediaType(contentType); f != FORMAT_UNKNOWN {
		// text/plain 的 markdown 文件按扩展名区分
		if f == FORMAT_TEXT && extFormats[strings.ToLower(path.Ext(name))] == FORMAT_MARKDOWN {
			return FORMAT_MARKDOWN
		}
		return f
	}
	if f, ok := extFormats[strings.ToLower(path.Ext(name))]; ok {
		return f
	}
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	return formatOfMediaType(http.DetectContentType(head))
}

func formatOfMediaType(contentType string) Format {
	if contentType == "" {
		return FORMAT_UNKNOWN
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FORMAT_UNKNOWN
	}
	return mediaTypeFormats[strings.ToLower(mediaType)]
}
