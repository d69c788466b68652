package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/John-Robertt/texatlas/internal/app/run"
	"github.com/John-Robertt/texatlas/internal/config"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 帧很多时只打印首帧、末帧和每 frameEvery 帧一行，避免刷屏
type progressUI struct {
	w io.Writer

	mu         sync.Mutex
	startedAt  time.Time
	frameEvery int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w, frameEvery: 10}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	fmt.Fprintf(p.w, "[%s] texatlas build\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  path: %s\n", eff.Path)
	fmt.Fprintf(p.w, "  sequence: %s\n", orAuto(eff.Sequence))
	if eff.Columns == 0 {
		fmt.Fprintln(p.w, "  columns: auto")
	} else {
		fmt.Fprintf(p.w, "  columns: %d\n", eff.Columns)
	}
	fmt.Fprintf(p.w, "  row_order: %s\n", eff.RowOrder)
	fmt.Fprintf(p.w, "  background: %s\n", formatColor(eff.Background))
	if eff.ProxyURL != "" {
		fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	}

	fmt.Fprintln(p.w, "输出:")
	fmt.Fprintf(p.w, "  out_dir: %s\n", eff.OutDir)
	fmt.Fprintf(p.w, "  name: %s (%s, overwrite=%s, manifest=%s)\n",
		eff.Output, eff.Format, onOff(eff.Overwrite), onOff(eff.Manifest),
	)
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "discover":
		fmt.Fprintf(p.w, "发现: sequences=%d skipped=%d (%s)\n",
			intField(fields, "sequences"), intField(fields, "skipped"), formatShortDuration(dur),
		)
	case "load":
		fmt.Fprintf(p.w, "加载: frames=%d (%s)\n", intField(fields, "frames"), formatShortDuration(dur))
	case "compose":
		fmt.Fprintf(p.w, "合成: %dx%d grid=%dx%d (%s)\n",
			intField(fields, "width"), intField(fields, "height"),
			intField(fields, "columns"), intField(fields, "rows"),
			formatShortDuration(dur),
		)
		if n := intField(fields, "empty"); n > 0 {
			fmt.Fprintf(p.w, "  提示: %d 个空 tile（背景色填充）\n", n)
		}
	case "save":
		fmt.Fprintf(p.w, "保存: %s bytes=%d (%s)\n",
			truncate(stringField(fields, "output"), 120), intField(fields, "bytes"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnFrameLoaded(idx, total int, name string, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !shouldPrintFrame(idx, total, p.frameEvery) {
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s (%s)\n", idx, total, truncate(name, 120), formatShortDuration(dur))
}

func shouldPrintFrame(idx, total, every int) bool {
	if every <= 1 || idx == 1 || idx == total {
		return true
	}
	return idx%every == 0
}

func orAuto(s string) string {
	if strings.TrimSpace(s) == "" {
		return "auto"
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatColor(c [4]float32) string {
	return fmt.Sprintf("rgba(%.3g, %.3g, %.3g, %.3g)", c[0], c[1], c[2], c[3])
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

// truncate 按字节上限截断，切点回退到 rune 起始处，不会切坏多字节字符。
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	suffix := "..."
	if max <= 3 {
		suffix = ""
	}
	cut := max - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
