package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS 是本地目录实现。
//
// 约束：
// - 只列 dir 的直接子项，不递归
// - 只保留常规文件；符号链接按目标判断（指向目录或已失效的链接会被跳过）
// - 列目录阶段只做 stat，不读文件内容
type FS struct{}

func (FS) List(ctx context.Context, dir string) ([]string, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%q: %w", dir, ErrNotDirectory)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
			continue
		}
		if e.Type()&os.ModeSymlink == 0 {
			continue
		}
		target, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil || !target.Mode().IsRegular() {
			continue
		}
		names = append(names, e.Name())
	}

	// 输出顺序与文件系统无关。
	sort.Strings(names)
	return names, nil
}

func (FS) Load(ctx context.Context, dir, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(filepath.Clean(strings.TrimSpace(dir)), name))
}
