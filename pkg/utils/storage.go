package utils

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const ObjectURLScheme = "s3"

// IsURL 只识别可以被直接拉取的地址：http(s) 与 s3://bucket/key
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", ObjectURLScheme:
		return true
	}
	return false
}

// ParseObjectURL 解析 s3://bucket/key
func ParseObjectURL(s string) (bucket, key string, err error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", "", err
	}
	if !strings.EqualFold(u.Scheme, ObjectURLScheme) || u.Host == "" {
		return "", "", fmt.Errorf("not an object url: %s", s)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("object url without key: %s", s)
	}
	return u.Host, key, nil
}

func ObjectURL(bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", ObjectURLScheme, bucket, strings.TrimPrefix(key, "/"))
}

// JoinObjectPath 拼接对象路径，prefix 为空时只返回文件名
func JoinObjectPath(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
