package safe

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
)

// Run 执行 fn 并吞掉 panic，只记录日志
func Run(fn func()) {
	RunWithLog(fn, "safe.Run")
}

func RunWithLog(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", stackTrace(20)),
			)
		}
	}()

	fn()
}

// Go 在新的 goroutine 中执行 fn
func Go(component string, fn func()) {
	go RunWithLog(fn, component)
}

// Call 执行 fn，把 panic 转换为 error 返回，用于 errgroup 中的并发任务
func Call(component string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", stackTrace(20)),
			)
			err = fmt.Errorf("%s: panic: %v", component, r)
		}
	}()
	return fn()
}

// stackTrace 截取 debug.Stack 的前 maxLines 行
func stackTrace(maxLines int) string {
	lines := strings.Split(string(debug.Stack()), "\n")
	formatted := make([]string, 0, maxLines+1)
	for _, line := range lines {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		if len(formatted) == maxLines {
			formatted = append(formatted, "... (truncated)")
			break
		}
		formatted = append(formatted, line)
	}
	return strings.Join(formatted, "\n")
}
