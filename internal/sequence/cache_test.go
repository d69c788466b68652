package sequence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

type countingLister struct {
	calls map[string]int
	files map[string][]string
	err   error
}

func (l *countingLister) List(ctx context.Context, dir string) ([]string, error) {
	if l.calls == nil {
		l.calls = map[string]int{}
	}
	l.calls[dir]++
	if l.err != nil {
		return nil, l.err
	}
	names, ok := l.files[dir]
	if !ok {
		return nil, fmt.Errorf("%q: %w", dir, fs.ErrNotExist)
	}
	return names, nil
}

func TestCache_HitUntilInvalidated(t *testing.T) {
	l := &countingLister{files: map[string][]string{"/a": {"f_1.png", "f_2.png"}}}
	c := NewCache(l)
	ctx := context.Background()

	r1, err := c.Get(ctx, "/a")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := c.Get(ctx, " /a "); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if l.calls["/a"] != 1 {
		t.Fatalf("相同 path 应命中缓存，实际扫描 %d 次", l.calls["/a"])
	}
	if len(r1.Groups["f_#.png"]) != 2 {
		t.Fatalf("发现结果不符合预期：%v", r1.Groups)
	}

	l.files["/a"] = append(l.files["/a"], "f_3.png")
	c.Invalidate()
	r2, err := c.Get(ctx, "/a")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if l.calls["/a"] != 2 {
		t.Fatalf("Invalidate 后应重新扫描，实际 %d 次", l.calls["/a"])
	}
	if len(r2.Groups["f_#.png"]) != 3 {
		t.Fatalf("重新扫描后应有 3 帧：%v", r2.Groups)
	}

	// dirty 已清除：再次命中缓存。
	if _, err := c.Get(ctx, "/a"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if l.calls["/a"] != 2 {
		t.Fatalf("dirty 清除后应命中缓存，实际 %d 次", l.calls["/a"])
	}
}

func TestCache_NewPathEvicts(t *testing.T) {
	l := &countingLister{files: map[string][]string{"/a": {"a1"}, "/b": {"b1"}}}
	c := NewCache(l)
	ctx := context.Background()

	for _, p := range []string{"/a", "/b", "/a"} {
		if _, err := c.Get(ctx, p); err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	}
	// 单槽：/a -> /b 驱逐 /a，再回到 /a 必须重新扫描。
	if l.calls["/a"] != 2 || l.calls["/b"] != 1 {
		t.Fatalf("扫描次数不符合单槽语义：%v", l.calls)
	}
}

func TestCache_PathInvalidDegradesToEmpty(t *testing.T) {
	l := &countingLister{files: map[string][]string{}}
	c := NewCache(l)

	r, err := c.Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("路径无效不应报错：%v", err)
	}
	if !r.PathInvalid || len(r.Groups) != 0 {
		t.Fatalf("期望空结果 + PathInvalid，实际 %+v", r)
	}
}

func TestCache_OtherErrorsNotCached(t *testing.T) {
	boom := errors.New("permission denied")
	l := &countingLister{err: boom}
	c := NewCache(l)
	ctx := context.Background()

	if _, err := c.Get(ctx, "/a"); !errors.Is(err, boom) {
		t.Fatalf("期望原样返回错误，实际 %v", err)
	}
	if _, err := c.Get(ctx, "/a"); !errors.Is(err, boom) {
		t.Fatalf("期望原样返回错误，实际 %v", err)
	}
	if l.calls["/a"] != 2 {
		t.Fatalf("失败结果不应被缓存，实际扫描 %d 次", l.calls["/a"])
	}
}
