package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/texatlas/internal/atlas"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/infra/imgx"
	"github.com/John-Robertt/texatlas/internal/source"
)

// FileName 是配置文件的固定文件名。
const FileName = "texatlas.toml"

const (
	// ErrCodeNotFound 表示没有给 path，且 cwd 下没有 texatlas.toml。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingPath 表示没有给 path，且配置文件缺少 path 字段。
	ErrCodeMissingPath = domain.ErrCodeConfigMissingPath
)

const (
	DefaultOutput   = "Texture Atlas"
	DefaultRowOrder = domain.TopToBottom
	DefaultFormat   = imgx.FormatPNG
)

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息（--overwrite=false 必须能覆盖配置中的 true）。
type CLIArgs struct {
	Path string

	Sequence    string
	SequenceSet bool

	Columns    int
	ColumnsSet bool

	RowOrder    string
	RowOrderSet bool

	Output    string
	OutputSet bool

	OutDir    string
	OutDirSet bool

	Format    string
	FormatSet bool

	Overwrite    bool
	OverwriteSet bool
}

// FileConfig 对应 texatlas.toml。
type FileConfig struct {
	Path            string       `toml:"path"`
	Sequence        string       `toml:"sequence"`
	Columns         int          `toml:"columns"`
	RowOrder        string       `toml:"row_order"`
	Output          string       `toml:"output"`
	OutDir          string       `toml:"out_dir"`
	Format          string       `toml:"format"`
	Overwrite       *bool        `toml:"overwrite"`
	Background      string       `toml:"background"`
	BackgroundAlpha *float64     `toml:"background_alpha"`
	Manifest        *bool        `toml:"manifest"`
	Proxy           *ProxyConfig `toml:"proxy"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置。
type EffectiveConfig struct {
	// Path 是本地目录（clean + absolute）或 http(s) 目录 URL。
	Path string

	// Sequence 是要生成的序列 mask；为空时仅当目录中恰有一个序列才可生成。
	Sequence string
	// Columns 为 0 表示自动：ceil(sqrt(n))。
	Columns  int
	RowOrder domain.RowOrder

	Output    string
	OutDir    string
	Format    string
	Overwrite bool
	Manifest  bool

	Background atlas.Color
	ProxyURL   string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingPath:
		return fmt.Sprintf("%s：配置文件 %q 缺少必填字段 path", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 给了本地 path：<path>/texatlas.toml 可选
// 2) CLI 给了 http(s) URL：<cwd>/texatlas.toml 可选（远端目录不读配置）
// 3) CLI 没给 path：<cwd>/texatlas.toml 必须存在且包含 path
//
// 覆盖优先级：CLI > 配置文件 > 默认值；background/manifest/proxy 只由配置文件控制。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cliPath := strings.TrimSpace(cli.Path)
	switch {
	case cliPath != "" && source.IsRemote(cliPath):
		cfgPath := filepath.Join(cwdAbs, FileName)
		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		return merge(cliPath, cwdAbs, cli, fc, cfgPath)

	case cliPath != "":
		absPath := absCleanFrom(cwdAbs, cliPath)
		cfgPath := filepath.Join(absPath, FileName)
		fc, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		// 目录内配置：相对 out_dir 以该目录为基准。
		return merge(absPath, absPath, cli, fc, cfgPath)
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	p := strings.TrimSpace(fc.Path)
	if p == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingPath, Path: cfgPath}
	}
	if !source.IsRemote(p) {
		p = absCleanFrom(cwdAbs, p)
	}
	return merge(p, cwdAbs, cli, fc, cfgPath)
}

// merge 合并 CLI 与配置文件。base 是相对 out_dir 的基准目录。
func merge(path, base string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff := EffectiveConfig{
		Path:     path,
		Sequence: pick(cli.SequenceSet, cli.Sequence, fc.Sequence, ""),
		Output:   strings.TrimSpace(pick(cli.OutputSet, cli.Output, fc.Output, DefaultOutput)),
		Format:   imgx.NormalizeFormat(pick(cli.FormatSet, cli.Format, fc.Format, DefaultFormat)),
		Manifest: true,
	}

	eff.Columns = fc.Columns
	if cli.ColumnsSet {
		eff.Columns = cli.Columns
	}
	if eff.Columns < 0 {
		return invalid(fmt.Errorf("columns 不能为负数：%d", eff.Columns))
	}

	order, err := domain.ParseRowOrder(pick(cli.RowOrderSet, cli.RowOrder, fc.RowOrder, string(DefaultRowOrder)))
	if err != nil {
		return invalid(err)
	}
	eff.RowOrder = order

	if eff.Output == "" {
		return invalid(errors.New("output 不能为空"))
	}
	if strings.ContainsAny(eff.Output, `/\`) {
		return invalid(fmt.Errorf("output 只能是文件名，不能包含路径分隔符：%q", eff.Output))
	}
	if !imgx.Supported(eff.Format) {
		return invalid(fmt.Errorf("format 只能是 png、tiff 或 bmp，实际是 %q", eff.Format))
	}

	// out_dir：默认与源目录相同；远端源默认写到 base（cwd）。
	outDir := pick(cli.OutDirSet, cli.OutDir, fc.OutDir, "")
	switch {
	case strings.TrimSpace(outDir) != "":
		eff.OutDir = absCleanFrom(base, outDir)
	case source.IsRemote(path):
		eff.OutDir = base
	default:
		eff.OutDir = path
	}

	if cli.OverwriteSet {
		eff.Overwrite = cli.Overwrite
	} else if fc.Overwrite != nil {
		eff.Overwrite = *fc.Overwrite
	}
	if fc.Manifest != nil {
		eff.Manifest = *fc.Manifest
	}

	alpha := 1.0
	if fc.BackgroundAlpha != nil {
		alpha = *fc.BackgroundAlpha
	}
	bg, err := atlas.ParseColor(fc.Background, alpha)
	if err != nil {
		return invalid(err)
	}
	eff.Background = bg

	if fc.Proxy != nil {
		eff.ProxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", eff.ProxyURL))
		}
	}
	return eff, nil
}

// pick：CLI 显式指定 > 配置文件非空 > 默认值。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return cliVal
	}
	if strings.TrimSpace(fileVal) != "" {
		return strings.TrimSpace(fileVal)
	}
	return def
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件；exists 表示文件是否存在（不存在不算错误）。
// 未知字段视为错误，避免拼错的键被静默忽略。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
