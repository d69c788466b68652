package run

import (
	"path/filepath"
	"strings"

	"github.com/John-Robertt/texatlas/internal/config"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/sequence"
)

// outputExts 是本程序可能写出的扩展名：三种图集格式加 manifest。
var outputExts = map[string]bool{".png": true, ".tiff": true, ".bmp": true, ".json": true}

// OwnOutputs 返回一个判断函数：name 是否是本程序自己写出的文件。
//
// 配置文件总是算在内。out_dir 与 path 相同时，<output>.<ext> 与 <output>__N.<ext>
// 也算在内，ext 覆盖所有图集格式和 manifest（换过 format 的旧产物同样被排除）。
func OwnOutputs(eff config.EffectiveConfig) func(name string) bool {
	if filepath.Clean(eff.OutDir) != filepath.Clean(eff.Path) {
		return func(name string) bool { return name == config.FileName }
	}
	return func(name string) bool {
		if name == config.FileName {
			return true
		}
		ext := filepath.Ext(name)
		if !outputExts[strings.ToLower(ext)] {
			return false
		}
		base := strings.TrimSuffix(name, ext)
		if base == eff.Output {
			return true
		}
		n, ok := strings.CutPrefix(base, eff.Output+"__")
		return ok && isDigits(n)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// excludeOutputs 从发现结果中剔除 ignore 命中的文件，返回新的 Result。
// res 可能来自 Cache，不能原地修改；剔除后为空的序列整组丢弃。
func excludeOutputs(res sequence.Result, ignore func(string) bool) sequence.Result {
	out := sequence.Result{Path: res.Path, PathInvalid: res.PathInvalid}
	if len(res.Groups) > 0 {
		out.Groups = make(domain.Sequences, len(res.Groups))
	}
	for mask, members := range res.Groups {
		kept := make([]domain.FrameFile, 0, len(members))
		for _, f := range members {
			if !ignore(f.Name) {
				kept = append(kept, f)
			}
		}
		if len(kept) > 0 {
			out.Groups[mask] = kept
		}
	}
	for _, name := range res.Skipped {
		if !ignore(name) {
			out.Skipped = append(out.Skipped, name)
		}
	}
	return out
}
