package run

import (
	"time"

	"github.com/John-Robertt/texatlas/internal/config"
)

// Observer 用于把“运行进度/阶段”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 事件按流程顺序同步发出；watch 模式下实现仍应并发安全。
type Observer interface {
	// OnStart 在 BuildWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用：discover/load/compose/save。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFrameLoaded 在每帧加载并解码完成后调用（idx 从 1 开始）。
	OnFrameLoaded(idx, total int, name string, dur time.Duration)
}
