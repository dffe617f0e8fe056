package podcast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	MERGER_FFMPEG = "ffmpeg"
	MERGER_CONCAT = "concat"
)

// NewMerger 根据名称创建合并器，默认使用 ffmpeg
func NewMerger(name, ffmpegPath string) (Merger, error) {
	switch name {
	case "", MERGER_FFMPEG:
		return &FFmpegMerger{Path: ffmpegPath}, nil
	case MERGER_CONCAT:
		return ConcatMerger{}, nil
	}
	return nil, fmt.Errorf("unknown audio merger %q", name)
}

// FFmpegMerger 使用 ffmpeg concat demuxer 合并，不重新编码
type FFmpegMerger struct {
	Path string
}

func (m *FFmpegMerger) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio segments to merge")
	}

	list, err := os.CreateTemp(filepath.Dir(output), "concat_*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())

	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			list.Close()
			return err
		}
		// concat 列表中的单引号需要转义
		if _, err = fmt.Fprintf(list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`)); err != nil {
			list.Close()
			return err
		}
	}
	if err = list.Close(); err != nil {
		return err
	}

	bin := m.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", list.Name(), "-c", "copy", output)
	cmd.Stderr = &stderr
	if err = cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg merge failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// ConcatMerger 直接按顺序拼接文件字节，mp3 帧可以直接拼接播放
type ConcatMerger struct{}

func (ConcatMerger) Merge(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio segments to merge")
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}

	for _, in := range inputs {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = appendFile(out, in); err != nil {
			break
		}
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
	}
	return err
}

func appendFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
