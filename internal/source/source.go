package source

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"
)

// Lister 列出目录中的常规文件名（不含子目录）。
type Lister interface {
	List(ctx context.Context, dir string) ([]string, error)
}

// Loader 读取目录中某个文件的原始字节（解码交给 imgx）。
type Loader interface {
	Load(ctx context.Context, dir, name string) ([]byte, error)
}

// Source 是发现与加载两侧协作者的组合。
type Source interface {
	Lister
	Loader
}

// ErrNotDirectory 表示给定路径存在但不是目录。
var ErrNotDirectory = errors.New("source: not a directory")

// IsPathInvalid 判断 err 是否属于“路径不存在或不是目录”。
// 发现阶段遇到这类错误应降级为空结果，而不是失败。
func IsPathInvalid(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrNotDirectory)
}

// IsRemote 判断 path 是否是 HTTP 目录索引 URL。
func IsRemote(path string) bool {
	p := strings.ToLower(strings.TrimSpace(path))
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// For 按 path 形态选择实现：http(s) URL => HTTP（使用 c），否则 => 本地目录。
func For(path string, c *http.Client) Source {
	if IsRemote(path) {
		return HTTP{Client: c}
	}
	return FS{}
}
