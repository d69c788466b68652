package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_Proxy(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:8080")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if tr.RetryMax != defaultRetryMax {
		t.Fatalf("期望 RetryMax=%d，实际 %d", defaultRetryMax, tr.RetryMax)
	}
}

func TestNewClient_NoProxy(t *testing.T) {
	c, err := NewClient("  ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if c.Transport.(*Transport).Base.Proxy != nil {
		t.Fatalf("不期望启用代理")
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewClient("http://[::1"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewClient("127.0.0.1:8080"); err == nil {
		t.Fatalf("缺少 scheme 时期望错误")
	}
}

func TestTransport_SetsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c, err := NewClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()
	if got != userAgent {
		t.Fatalf("期望 UA=%q，实际 %q", userAgent, got)
	}
}
