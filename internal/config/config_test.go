package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/texatlas/internal/atlas"
	"github.com/John-Robertt/texatlas/internal/domain"
)

func TestLoadEffective_ConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_ConfigMissingPath(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`columns = 4`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeMissingPath {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeMissingPath, err, Code(err))
	}
}

func TestLoadEffective_Defaults(t *testing.T) {
	cwd := t.TempDir()
	root := filepath.Join(cwd, "renders")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	eff, err := LoadEffective(cwd, CLIArgs{Path: "renders"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != root || eff.OutDir != root {
		t.Fatalf("期望 path/out_dir=%q，实际 %q / %q", root, eff.Path, eff.OutDir)
	}
	if eff.Output != DefaultOutput || eff.Format != DefaultFormat || eff.RowOrder != DefaultRowOrder {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Columns != 0 || eff.Overwrite || !eff.Manifest {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.Background != atlas.DefaultBackground {
		t.Fatalf("默认背景应为不透明黑，实际 %v", eff.Background)
	}
}

func TestLoadEffective_FileValuesAndCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
path = "renders"
sequence = "walk_#.png"
columns = 4
row_order = "bottom_to_top"
output = "walk"
out_dir = "atlases"
format = "tif"
overwrite = true
background = "#ff00ff"
background_alpha = 0.0
manifest = false

[proxy]
url = "http://127.0.0.1:8080"
`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != filepath.Join(cwd, "renders") || eff.OutDir != filepath.Join(cwd, "atlases") {
		t.Fatalf("路径不符合预期：%+v", eff)
	}
	if eff.Sequence != "walk_#.png" || eff.Columns != 4 || eff.RowOrder != domain.BottomToTop {
		t.Fatalf("配置值不符合预期：%+v", eff)
	}
	if eff.Output != "walk" || eff.Format != "tiff" || !eff.Overwrite || eff.Manifest {
		t.Fatalf("配置值不符合预期：%+v", eff)
	}
	if eff.Background != (atlas.Color{1, 0, 1, 0}) {
		t.Fatalf("背景不符合预期：%v", eff.Background)
	}
	if eff.ProxyURL != "http://127.0.0.1:8080" {
		t.Fatalf("proxy 不符合预期：%q", eff.ProxyURL)
	}

	// CLI 显式指定：覆盖配置文件（包括 --overwrite=false）。
	eff2, err := LoadEffective(cwd, CLIArgs{
		Columns: 2, ColumnsSet: true,
		RowOrder: "top_to_bottom", RowOrderSet: true,
		Overwrite: false, OverwriteSet: true,
		Format: "png", FormatSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Columns != 2 || eff2.RowOrder != domain.TopToBottom || eff2.Overwrite || eff2.Format != "png" {
		t.Fatalf("CLI 覆盖不生效：%+v", eff2)
	}
}

func TestLoadEffective_RemotePathUsesCwdConfig(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`columns = 3`))

	eff, err := LoadEffective(cwd, CLIArgs{Path: "https://cdn.test/renders/"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Path != "https://cdn.test/renders/" {
		t.Fatalf("远端 path 不应被当作本地路径：%q", eff.Path)
	}
	if eff.OutDir != cwd {
		t.Fatalf("远端源默认 out_dir 应为 cwd，实际 %q", eff.OutDir)
	}
	if eff.Columns != 3 {
		t.Fatalf("应读取 cwd 下的配置：%+v", eff)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	cases := map[string]string{
		"语法错误":    `path = `,
		"未知字段":    `path = "p"` + "\n" + `colums = 3`,
		"负列数":     `path = "p"` + "\n" + `columns = -1`,
		"非法行序":    `path = "p"` + "\n" + `row_order = "left"`,
		"名称含路径":   `path = "p"` + "\n" + `output = "a/b"`,
		"非法格式":    `path = "p"` + "\n" + `format = "jpeg"`,
		"非法背景":    `path = "p"` + "\n" + `background = "#xyz123"`,
		"alpha 越界": `path = "p"` + "\n" + `background_alpha = 2.0`,
		"非法代理":    `path = "p"` + "\n" + "[proxy]\n" + `url = "http://[::1"`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))

		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("%s：期望 %q，实际 err=%v (code=%q)", name, ErrCodeInvalid, err, Code(err))
		}
	}
}

func TestLoadEffective_CLIEmptyOutputRejected(t *testing.T) {
	cwd := t.TempDir()
	_, err := LoadEffective(cwd, CLIArgs{Path: cwd, Output: "", OutputSet: true})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeInvalid, err)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
