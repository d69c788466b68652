package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/texatlas/internal/app/run"
	"github.com/John-Robertt/texatlas/internal/config"
	"github.com/John-Robertt/texatlas/internal/domain"
	"github.com/John-Robertt/texatlas/internal/infra/httpx"
	"github.com/John-Robertt/texatlas/internal/sequence"
	"github.com/John-Robertt/texatlas/internal/source"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], osEnv()))
}

// env 是命令运行所需的外部环境；测试中替换为内存 writer。
type env struct {
	stdout, stderr       io.Writer
	stdoutTTY, stderrTTY bool
	cwd                  string
}

func osEnv() env {
	cwd, _ := os.Getwd()
	return env{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdoutTTY: isTTY(os.Stdout),
		stderrTTY: isTTY(os.Stderr),
		cwd:       cwd,
	}
}

// exitError 表示已经输出过结果、只需以 code 退出。
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

// execute 返回进程退出码：0 成功；1 运行失败；2 参数错误。
func execute(ctx context.Context, args []string, e env) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(e.stderr, "参数错误：%v\n", err)
		return 2
	}
	return 0
}

func newRootCmd(e env) *cobra.Command {
	root := &cobra.Command{
		Use:           "texatlas",
		Short:         "把图像序列拼成一张纹理图集",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)
	root.AddCommand(newListCmd(e), newBuildCmd(e), newWatchCmd(e))
	return root
}

func newListCmd(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "list [path]",
		Short: "列出目录中的图像序列（count mask）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := config.LoadEffective(e.cwd, config.CLIArgs{Path: firstArg(args)})
			if err != nil {
				fmt.Fprintf(e.stderr, "%v\n", err)
				return &exitError{code: 1}
			}
			src, err := newSource(eff)
			if err != nil {
				fmt.Fprintf(e.stderr, "%v\n", err)
				return &exitError{code: 1}
			}

			lr, err := run.List(cmd.Context(), eff, sequence.NewCache(src))
			if err != nil {
				fmt.Fprintf(e.stderr, "%s：列目录失败：%v\n", domain.ErrCodeIOFailed, err)
				return &exitError{code: 1}
			}
			emitList(e, lr)
			return nil
		},
	}
}

func newBuildCmd(e env) *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "生成纹理图集（以及同名 .json manifest）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := config.LoadEffective(e.cwd, f.cliArgs(cmd, firstArg(args)))
			if err != nil {
				emitReport(e, reportForConfigError(e.cwd, err))
				return &exitError{code: 1}
			}
			src, err := newSource(eff)
			if err != nil {
				emitReport(e, reportForConfigError(e.cwd, err))
				return &exitError{code: 1}
			}

			progressW, interactive := pickProgressWriter(e)
			var obs run.Observer
			if interactive {
				obs = newProgressUI(progressW)
			}

			rr := run.BuildWithObserver(cmd.Context(), eff, src, sequence.NewCache(src), obs)
			emitReport(e, rr)
			if !rr.OK() {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// buildFlags 是 build/watch 共享的参数；是否显式指定由 Flags().Changed 判断。
type buildFlags struct {
	sequence  string
	columns   int
	order     string
	output    string
	outDir    string
	format    string
	overwrite bool
}

func (f *buildFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.sequence, "sequence", "s", "", "要生成的序列 mask（如 frame_#.png）；目录中只有一个序列时可省略")
	fs.IntVarP(&f.columns, "columns", "c", 0, "列数；0 表示自动 ceil(sqrt(n))")
	fs.StringVar(&f.order, "order", "", "行序：top_to_bottom|bottom_to_top（默认 top_to_bottom）")
	fs.StringVarP(&f.output, "output", "o", "", `输出文件名（不含扩展名，默认 "Texture Atlas"）`)
	fs.StringVar(&f.outDir, "out-dir", "", "输出目录（默认与源目录相同；远端源默认 cwd）")
	fs.StringVarP(&f.format, "format", "f", "", "输出格式：png|tiff|bmp（默认 png）")
	fs.BoolVar(&f.overwrite, "overwrite", false, "覆盖同名输出；支持 --overwrite=false 覆盖配置中的 true")
}

func (f *buildFlags) cliArgs(cmd *cobra.Command, path string) config.CLIArgs {
	fs := cmd.Flags()
	return config.CLIArgs{
		Path:         path,
		Sequence:     f.sequence,
		SequenceSet:  fs.Changed("sequence"),
		Columns:      f.columns,
		ColumnsSet:   fs.Changed("columns"),
		RowOrder:     f.order,
		RowOrderSet:  fs.Changed("order"),
		Output:       f.output,
		OutputSet:    fs.Changed("output"),
		OutDir:       f.outDir,
		OutDirSet:    fs.Changed("out-dir"),
		Format:       f.format,
		FormatSet:    fs.Changed("format"),
		Overwrite:    f.overwrite,
		OverwriteSet: fs.Changed("overwrite"),
	}
}

func newSource(eff config.EffectiveConfig) (source.Source, error) {
	if !source.IsRemote(eff.Path) {
		return source.FS{}, nil
	}
	c, err := httpx.NewClient(eff.ProxyURL)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: eff.Path, Err: err}
	}
	return source.For(eff.Path, c), nil
}

// signalContext 让 watch 在 Ctrl-C / SIGTERM 时退出。
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func emitList(e env, lr domain.ListReport) {
	if lr.PathInvalid {
		fmt.Fprintf(e.stderr, "警告：%s：路径不存在或不是目录：%q\n", domain.ErrCodePathInvalid, lr.Path)
	}
	if e.stdoutTTY {
		for _, s := range lr.Sequences {
			fmt.Fprintf(e.stdout, "%d %s\n", s.Count, s.Mask)
		}
		return
	}
	_ = json.NewEncoder(e.stdout).Encode(lr)
}

func emitReport(e env, rr domain.BuildReport) {
	if e.stdoutTTY {
		fmt.Fprintln(e.stdout, summaryLine(rr))
		if !rr.OK() {
			fmt.Fprintln(e.stderr, failureLine(rr))
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 BuildReport JSON（日志/摘要走 stderr）。
	_ = json.NewEncoder(e.stdout).Encode(rr)
	fmt.Fprintln(e.stderr, summaryLine(rr))
	if !rr.OK() {
		fmt.Fprintln(e.stderr, failureLine(rr))
	}
}

func summaryLine(rr domain.BuildReport) string {
	if !rr.OK() {
		return fmt.Sprintf("完成：status=%s error_code=%s", rr.Status, rr.ErrorCode)
	}
	return fmt.Sprintf("完成：status=%s sequence=%s frames=%d size=%dx%d grid=%dx%d output=%s",
		rr.Status, rr.Sequence, rr.Frames, rr.Width, rr.Height, rr.Columns, rr.Rows, rr.Output,
	)
}

func failureLine(rr domain.BuildReport) string {
	if rr.ErrorFile != "" {
		return fmt.Sprintf("%s %s: %s", rr.ErrorFile, rr.ErrorCode, rr.ErrorMsg)
	}
	return fmt.Sprintf("%s: %s", rr.ErrorCode, rr.ErrorMsg)
}

func reportForConfigError(cwd string, err error) domain.BuildReport {
	now := time.Now().UTC()
	abs, _ := filepath.Abs(cwd)
	rr := domain.BuildReport{
		Path:       abs,
		StartedAt:  now,
		FinishedAt: now,
	}
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr.Fail(code, err.Error())
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter(e env) (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if e.stderrTTY {
		return e.stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if e.stdoutTTY {
		return e.stdout, true
	}
	return nil, false
}
