package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/texatlas/internal/app/run"
	"github.com/John-Robertt/texatlas/internal/config"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/sequence"
	"github.com/John-Robertt/texatlas/internal/source"
	"github.com/John-Robertt/texatlas/internal/watch"
)

func newWatchCmd(e env) *cobra.Command {
	var f buildFlags
	var verbose bool
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "监视本地目录，序列变化时自动重新生成图集",
		Long: `监视本地目录，序列变化时自动重新生成图集。

watch 模式总是覆盖同名输出（overwrite=true），否则每次重建都会产生新的
name__N 文件。stdout 非 TTY 时，每次构建输出一行 BuildReport JSON。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(e.stderr, verbose)

			eff, err := config.LoadEffective(e.cwd, f.cliArgs(cmd, firstArg(args)))
			if err != nil {
				emitReport(e, reportForConfigError(e.cwd, err))
				return &exitError{code: 1}
			}
			if source.IsRemote(eff.Path) {
				return errors.New("watch 只支持本地目录")
			}
			eff.Overwrite = true

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return watchLoop(ctx, e, eff, log)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")
	return cmd
}

// watchLoop 先构建一次，然后每批文件变化让缓存失效并重建，直到 ctx 结束。
func watchLoop(ctx context.Context, e env, eff config.EffectiveConfig, log *slog.Logger) error {
	w, err := watch.NewWatcher(eff.Path)
	if err != nil {
		return err
	}
	// 本程序自己写出的文件不触发重建。
	w.Ignore = run.OwnOutputs(eff)
	if err := w.Start(); err != nil {
		log.Error("无法监视目录", "path", eff.Path, "error", err)
		return &exitError{code: 1}
	}
	defer w.Stop()

	cache := sequence.NewCache(source.FS{})
	build := func() {
		rr := run.Build(ctx, eff, source.FS{}, cache)
		emitWatchReport(e, rr)
		if rr.OK() {
			log.Info("图集已生成", "output", rr.Output, "frames", rr.Frames, "width", rr.Width, "height", rr.Height)
		} else {
			log.Warn("生成失败", "error_code", rr.ErrorCode, "error", rr.ErrorMsg, "file", rr.ErrorFile)
		}
	}

	log.Info("开始监视", "path", eff.Path, "sequence", eff.Sequence)
	build()
	for {
		select {
		case <-ctx.Done():
			log.Info("停止监视")
			return nil
		case c, ok := <-w.Changes:
			if !ok {
				return nil
			}
			log.Debug("检测到变化", "files", c.Files)
			cache.Invalidate()
			build()
		}
	}
}

// emitWatchReport：TTY 时只打摘要；否则每次构建一行 JSON（JSON Lines）。
func emitWatchReport(e env, rr domain.BuildReport) {
	if e.stdoutTTY {
		fmt.Fprintln(e.stdout, summaryLine(rr))
		return
	}
	_ = json.NewEncoder(e.stdout).Encode(rr)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
