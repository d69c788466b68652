package sequence

import (
	"context"
	"strings"
	"sync"

	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/source"
)

// Result 是一次目录发现的结果。
type Result struct {
	Path    string
	Groups  domain.Sequences
	Skipped []string
	// PathInvalid 表示目录不存在或不是目录；此时 Groups 为空但不算错误。
	PathInvalid bool
}

// Cache 是发现结果的单槽缓存（容量 1，按 path 做 key）。
//
// 规则：
// - path 与上次不同，或已被 Invalidate：重新列目录并 Discover
// - 新 path 无条件驱逐旧条目
// - 除 Invalidate 外永不过期
//
// Cache 可被多个 goroutine 共享（watch 模式下事件循环与构建并发）。
type Cache struct {
	lister source.Lister

	mu     sync.Mutex
	valid  bool
	dirty  bool
	path   string
	result Result
}

func NewCache(l source.Lister) *Cache {
	return &Cache{lister: l}
}

// Get 返回 path 的发现结果，必要时重新扫描。
// 路径无效降级为空结果；其它列目录错误原样返回，且不写入缓存。
func (c *Cache) Get(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && !c.dirty && c.path == path {
		return c.result, nil
	}

	res := Result{Path: path}
	names, err := c.lister.List(ctx, path)
	switch {
	case err == nil:
		res.Groups, res.Skipped = Discover(names)
	case source.IsPathInvalid(err):
		res.Groups = domain.Sequences{}
		res.PathInvalid = true
	default:
		return Result{}, err
	}

	c.valid = true
	c.dirty = false
	c.path = path
	c.result = res
	return res, nil
}

// Invalidate 标记缓存为 dirty，下一次 Get 必定重新扫描。
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}
