package run

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/John-Robertt/texatlas/internal/atlas"
	"github.com/John-Robertt/texatlas/internal/config"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/infra/fsx"
	"github.com/John-Robertt/texatlas/internal/infra/imgx"
	"github.com/John-Robertt/texatlas/internal/sequence"
	"github.com/John-Robertt/texatlas/internal/source"
)

// FrameError 表示某一帧加载/解码失败；Name 是源文件名。
type FrameError struct {
	Name string
	Err  error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("加载 %q 失败：%v", e.Name, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Build 执行一次图集生成，并返回对外稳定的 BuildReport。
func Build(ctx context.Context, eff config.EffectiveConfig, src source.Loader, c *sequence.Cache) domain.BuildReport {
	return BuildWithObserver(ctx, eff, src, c, nil)
}

// BuildWithObserver 与 Build 相同，但允许传入 Observer 以输出进度/阶段信息。
//
// 流程（固定）：发现 → 选择序列 → 按文件名排序 → 逐帧加载 → 合成 → 编码 → 保存 → manifest。
// 任一步失败即停止；保存之前的失败不会写出任何文件。
func BuildWithObserver(ctx context.Context, eff config.EffectiveConfig, src source.Loader, c *sequence.Cache, obs Observer) (rr domain.BuildReport) {
	if obs != nil {
		obs.OnStart(eff)
	}

	rr = domain.BuildReport{
		Path:      eff.Path,
		StartedAt: time.Now().UTC(),
		RowOrder:  string(eff.RowOrder),
	}
	// 具名返回值：defer 中的 Finalize 对所有 return 路径生效。
	defer func() {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
	}()

	discoverStarted := time.Now()
	res, err := c.Get(ctx, eff.Path)
	if err != nil {
		rr.Fail(domain.ErrCodeIOFailed, fmt.Sprintf("列目录失败：%v", err))
		return rr
	}
	// 写回源目录的图集/manifest 不能被下一次发现当成源帧。
	res = excludeOutputs(res, OwnOutputs(eff))
	rr.Skipped = append([]string(nil), res.Skipped...)
	if obs != nil {
		obs.OnPhaseDone("discover", map[string]any{
			"sequences": len(res.Groups),
			"skipped":   len(res.Skipped),
		}, time.Since(discoverStarted))
	}

	mask, err := Select(res, eff.Sequence)
	if err != nil {
		rr.Fail(selectCode(err), err.Error())
		return rr
	}
	rr.Sequence = mask

	frames, _ := sequence.Members(res.Groups, mask)
	rr.Frames = len(frames)
	if len(frames) == 0 {
		rr.Fail(domain.ErrCodeEmptySequence, fmt.Sprintf("序列 %q 不含任何帧", mask))
		return rr
	}

	loadStarted := time.Now()
	images, err := loadFrames(ctx, src, eff.Path, frames, obs)
	if err != nil {
		var fe *FrameError
		if errors.As(err, &fe) {
			rr.ErrorFile = fe.Name
		}
		rr.Fail(domain.ErrCodeImageLoadFailed, err.Error())
		return rr
	}
	if obs != nil {
		obs.OnPhaseDone("load", map[string]any{"frames": len(images)}, time.Since(loadStarted))
	}

	columns := eff.Columns
	if columns == 0 {
		columns = AutoColumns(len(images))
	}

	composeStarted := time.Now()
	out, layout, err := atlas.Compose(images, columns, eff.RowOrder, eff.Background)
	if err != nil {
		code := domain.ErrCodeComposeFailed
		if errors.Is(err, atlas.ErrEmptySequence) {
			code = domain.ErrCodeEmptySequence
		}
		var ie *atlas.InvalidImageError
		if errors.As(err, &ie) && ie.Index >= 0 && ie.Index < len(frames) {
			rr.ErrorFile = frames[ie.Index].Name
		}
		rr.Fail(code, fmt.Sprintf("合成失败：%v", err))
		return rr
	}
	rr.Width, rr.Height = out.Width, out.Height
	rr.Columns, rr.Rows = layout.Columns, layout.Rows
	rr.EmptyTiles = layout.EmptyTiles()
	if obs != nil {
		obs.OnPhaseDone("compose", map[string]any{
			"width":   out.Width,
			"height":  out.Height,
			"columns": layout.Columns,
			"rows":    layout.Rows,
			"empty":   layout.EmptyTiles(),
		}, time.Since(composeStarted))
	}

	saveStarted := time.Now()
	b, err := imgx.Encode(out, eff.Format)
	if err != nil {
		rr.Fail(domain.ErrCodeEncodeFailed, fmt.Sprintf("编码失败：%v", err))
		return rr
	}

	// 图集与 manifest 一起分配文件名：后缀 N 相同，且两者都不覆盖已有文件。
	names := []string{eff.Output + imgx.Ext(eff.Format)}
	if eff.Manifest {
		names = append(names, ManifestName(names[0]))
	}
	names, err = outputNames(eff, names)
	if err != nil {
		rr.Fail(domain.ErrCodeSaveFailed, fmt.Sprintf("分配输出文件名失败：%v", err))
		return rr
	}
	name := names[0]
	if err := save(eff, name, b); err != nil {
		rr.Fail(domain.ErrCodeSaveFailed, fmt.Sprintf("保存失败：%v", err))
		return rr
	}
	rr.Output = filepath.Join(eff.OutDir, name)

	if eff.Manifest {
		mb, err := EncodeManifest(NewManifest(name, layout, eff.RowOrder, frames, atlas.Sizes(images)))
		if err != nil {
			rr.Fail(domain.ErrCodeEncodeFailed, fmt.Sprintf("生成 manifest 失败：%v", err))
			return rr
		}
		if err := save(eff, names[1], mb); err != nil {
			rr.Fail(domain.ErrCodeSaveFailed, fmt.Sprintf("写入 manifest 失败：%v", err))
			return rr
		}
		rr.Manifest = filepath.Join(eff.OutDir, names[1])
	}
	if obs != nil {
		obs.OnPhaseDone("save", map[string]any{"output": name, "bytes": len(b)}, time.Since(saveStarted))
	}
	return rr
}

// Select 选出要生成的序列 mask。
//
// - want 非空：必须精确匹配某个 mask
// - want 为空：目录中恰有一个序列时自动选中，否则报 ambiguous
func Select(res sequence.Result, want string) (string, error) {
	if res.PathInvalid {
		return "", &SelectError{Code: domain.ErrCodePathInvalid, Msg: fmt.Sprintf("路径不存在或不是目录：%q", res.Path)}
	}
	if len(res.Groups) == 0 {
		return "", &SelectError{Code: domain.ErrCodeNoSequence, Msg: fmt.Sprintf("目录中没有图像序列：%q", res.Path)}
	}
	if want != "" {
		if _, ok := res.Groups[want]; !ok {
			return "", &SelectError{Code: domain.ErrCodeSequenceNotFound, Msg: fmt.Sprintf("序列 %q 不存在", want)}
		}
		return want, nil
	}
	if len(res.Groups) == 1 {
		for mask := range res.Groups {
			return mask, nil
		}
	}
	masks := make([]string, 0, len(res.Groups))
	for _, s := range sequence.List(res.Groups) {
		masks = append(masks, s.Mask)
	}
	return "", &SelectError{
		Code: domain.ErrCodeSequenceAmbiguous,
		Msg:  fmt.Sprintf("目录中有 %d 个序列，请用 --sequence 指定其一：%v", len(masks), masks),
	}
}

// SelectError 是序列选择阶段的失败，Code 为 report 中的 error_code。
type SelectError struct {
	Code string
	Msg  string
}

func (e *SelectError) Error() string { return e.Msg }

func selectCode(err error) string {
	var se *SelectError
	if errors.As(err, &se) {
		return se.Code
	}
	return domain.ErrCodeNoSequence
}

// AutoColumns = ceil(sqrt(n))，让图集尽量接近正方形。
func AutoColumns(n int) int {
	c := 1
	for c*c < n {
		c++
	}
	return c
}

// loadFrames 按顺序逐帧加载并解码；第一帧失败即返回（不继续加载后续帧）。
func loadFrames(ctx context.Context, src source.Loader, dir string, frames []domain.FrameFile, obs Observer) ([]domain.PixelBuffer, error) {
	out := make([]domain.PixelBuffer, 0, len(frames))
	for i, f := range frames {
		started := time.Now()
		b, err := src.Load(ctx, dir, f.Name)
		if err != nil {
			return nil, &FrameError{Name: f.Name, Err: err}
		}
		buf, _, err := imgx.Decode(b)
		if err != nil {
			return nil, &FrameError{Name: f.Name, Err: err}
		}
		out = append(out, buf)
		if obs != nil {
			obs.OnFrameLoaded(i+1, len(frames), f.Name, time.Since(started))
		}
	}
	return out, nil
}

// outputNames 决定最终文件名。overwrite=true 原样使用；否则为整组分配同一个 __N 后缀。
func outputNames(eff config.EffectiveConfig, names []string) ([]string, error) {
	if eff.Overwrite {
		return names, nil
	}
	return fsx.UniqueNames(eff.OutDir, names...)
}

// save 写出一个输出文件。overwrite=true 原子覆盖；否则永不覆盖（已存在返回 os.ErrExist）。
func save(eff config.EffectiveConfig, name string, b []byte) error {
	if eff.Overwrite {
		return fsx.WriteFileAtomicReplace(eff.OutDir, name, b)
	}
	return fsx.WriteFileAtomicNoOverwrite(eff.OutDir, name, b)
}
