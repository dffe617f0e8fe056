package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/joho/godotenv"
)

// LoadEnv 加载项目根目录下的 .env，文件不存在时忽略
func LoadEnv() error {
	_, filename, _, _ := runtime.Caller(0)
	envPath := filepath.Join(filepath.Dir(filename), "..", "..", ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(envPath)
}

// RequireEnv 加载 .env 并读取指定变量，任一缺失则跳过当前测试，
// 用于依赖真实外部服务的集成测试
func RequireEnv(t *testing.T, keys ...string) map[string]string {
	t.Helper()
	if err := LoadEnv(); err != nil {
		t.Fatalf("failed to load .env: %v", err)
	}

	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v := os.Getenv(k)
		if v == "" {
			t.Skipf("%s not set, skipping integration test", k)
		}
		values[k] = v
	}
	return values
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
