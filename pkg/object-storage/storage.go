package objectstorage

import (
	"context"
	"mime"
	"net/http"
	"path/filepath"
)

// Object 下载得到的对象内容
type Object struct {
	Body        []byte
	ContentType string
}

// Storage 对象存储驱动需要实现的能力，bucket 为空时使用驱动的默认 bucket
type Storage interface {
	Upload(ctx context.Context, bucket, localPath, dest string) error
	Download(ctx context.Context, bucket, key string) (*Object, error)
	Delete(ctx context.Context, bucket, key string) error
	ObjectURL(bucket, key string) string
	DefaultBucket() string
}

// ContentTypeByName 按扩展名推断 content-type，未知时返回 application/octet-stream
func ContentTypeByName(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// SniffContentType 优先使用服务端返回的类型，为空或为通用二进制类型时根据内容探测
func SniffContentType(declared string, body []byte) string {
	if declared != "" && declared != "application/octet-stream" && declared != "binary/octet-stream" {
		return declared
	}
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}
