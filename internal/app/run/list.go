package run

import (
	"context"

	"github.com/John-Robertt/texatlas/internal/config"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/sequence"
)

// List 返回目录中可选的序列（按 mask 排序）。
// 路径无效降级为空列表；只有真正的 I/O 错误才返回 error。
// 与 Build 一样，本程序自己写出的文件不参与发现。
func List(ctx context.Context, eff config.EffectiveConfig, c *sequence.Cache) (domain.ListReport, error) {
	res, err := c.Get(ctx, eff.Path)
	if err != nil {
		return domain.ListReport{}, err
	}
	res = excludeOutputs(res, OwnOutputs(eff))
	lr := domain.ListReport{
		Path:        res.Path,
		PathInvalid: res.PathInvalid,
		Sequences:   sequence.List(res.Groups),
		Skipped:     append([]string(nil), res.Skipped...),
	}
	lr.Finalize()
	return lr, nil
}
