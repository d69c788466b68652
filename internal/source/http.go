package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTTPStatusError 表示服务端返回了非 2xx 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d：%s", e.StatusCode, e.URL)
}

// Is 让 404 可以被 IsPathInvalid 识别为“目录不存在”。
func (e *HTTPStatusError) Is(target error) bool {
	return target == fs.ErrNotExist && e.StatusCode == http.StatusNotFound
}

// HTTP 把“目录”视为一个 HTTP 目录索引页（nginx autoindex / Apache mod_autoindex / python -m http.server 等）。
//
// 规则：
// - 索引页中所有 <a href> 解析为绝对 URL
// - 只保留 dir 的直接子文件：同 host、父路径等于 dir、不以 '/' 结尾（子目录）、不带 query（排序链接）
// - 文件名取 URL path 的最后一段（已反转义）
type HTTP struct {
	Client *http.Client
}

func (h HTTP) List(ctx context.Context, dir string) ([]string, error) {
	base, err := dirURL(dir)
	if err != nil {
		return nil, err
	}
	b, err := h.get(ctx, base.String())
	if err != nil {
		return nil, err
	}
	return ParseIndex(base, b)
}

func (h HTTP) Load(ctx context.Context, dir, name string) ([]byte, error) {
	base, err := dirURL(dir)
	if err != nil {
		return nil, err
	}
	u := base.ResolveReference(&url.URL{Path: name})
	return h.get(ctx, u.String())
}

// ParseIndex 从目录索引页 HTML 中提取 base 的直接子文件名（去重、已排序）。
func ParseIndex(base *url.URL, html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	parent := path.Clean(base.Path)
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		u := base.ResolveReference(ref)
		if u.Host != base.Host || u.RawQuery != "" {
			return
		}
		if strings.HasSuffix(u.Path, "/") {
			return
		}
		if path.Dir(u.Path) != parent {
			return
		}
		name := path.Base(u.Path)
		if name == "" || name == "." || name == "/" {
			return
		}
		seen[name] = struct{}{}
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// dirURL 规范化目录 URL：path 必须以 '/' 结尾，否则 ResolveReference 会丢掉最后一段。
func dirURL(dir string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(dir))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("目录 URL 必须是 http/https：%q", dir)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (h HTTP) get(ctx context.Context, u string) ([]byte, error) {
	c := h.Client
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
