package atlas

import (
	"errors"
	"fmt"
	"image"

	"github.com/John-Robertt/texatlas/internal/domain"
)

var (
	// ErrEmptySequence：合成 0 张图是前置条件错误，必须在分配前拒绝。
	ErrEmptySequence = errors.New("atlas: 序列为空")
	// ErrInvalidColumns：列数必须 >= 1。
	ErrInvalidColumns = errors.New("atlas: 列数必须 >= 1")
)

// InvalidImageError 表示第 Index 张源图的声明尺寸与数据不符。
type InvalidImageError struct {
	Index int
	Err   error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("第 %d 张源图无效：%v", e.Index, e.Err)
}

func (e *InvalidImageError) Unwrap() error { return e.Err }

// Layout 是由输入推导出的网格布局（不存储，随用随算）。
//
// 不变量：Rows*Columns >= Count；多出的格子是空 tile。
type Layout struct {
	Columns    int
	Rows       int
	CellWidth  int
	CellHeight int
	Count      int
}

// Plan 根据源图尺寸与列数计算布局。
// 格子尺寸 = 所有源图的最大宽 × 最大高；行数 = ceil(Count/Columns)。
func Plan(sizes []image.Point, columns int) (Layout, error) {
	if len(sizes) == 0 {
		return Layout{}, ErrEmptySequence
	}
	if columns < 1 {
		return Layout{}, ErrInvalidColumns
	}
	l := Layout{
		Columns: columns,
		Rows:    RowCount(len(sizes), columns),
		Count:   len(sizes),
	}
	for _, s := range sizes {
		l.CellWidth = max(l.CellWidth, s.X)
		l.CellHeight = max(l.CellHeight, s.Y)
	}
	return l, nil
}

// RowCount = ceil(n/columns)；columns < 1 时返回 0。
func RowCount(n, columns int) int {
	if columns < 1 || n <= 0 {
		return 0
	}
	return (n + columns - 1) / columns
}

func (l Layout) Width() int  { return l.CellWidth * l.Columns }
func (l Layout) Height() int { return l.CellHeight * l.Rows }

// EmptyTiles 是不含任何源图的格子数。
func (l Layout) EmptyTiles() int { return l.Rows*l.Columns - l.Count }

// Cell 返回第 i 张图的网格行（从序列起点数）与列。
func (l Layout) Cell(i int) (gridRow, gridColumn int) {
	return i / l.Columns, i % l.Columns
}

// DestRow 返回第 i 张图在输出中的行号（从底部数）。
//
// - top_to_bottom：第 0 张在最上面一行 => rows-1-gridRow
// - bottom_to_top：第 0 张在最下面一行 => gridRow
func (l Layout) DestRow(i int, order domain.RowOrder) int {
	gridRow, _ := l.Cell(i)
	if order == domain.BottomToTop {
		return gridRow
	}
	return l.Rows - 1 - gridRow
}

// Placement 是第 Index 张源图在输出中的位置。
// X/Y 使用左上原点（与编码后的图片文件一致），W/H 是源图自身尺寸。
type Placement struct {
	Index  int `json:"index"`
	Row    int `json:"row"`
	Column int `json:"column"`
	X      int `json:"x"`
	Y      int `json:"y"`
	W      int `json:"w"`
	H      int `json:"h"`
}

// Placements 计算每张源图的像素矩形。Row 为从上往下数的显示行。
func (l Layout) Placements(sizes []image.Point, order domain.RowOrder) []Placement {
	out := make([]Placement, 0, len(sizes))
	for i, s := range sizes {
		_, col := l.Cell(i)
		destRow := l.DestRow(i, order)
		// 源图贴在格子的左下角；换算为左上原点时 Y 指向图像上边缘。
		bottom := destRow*l.CellHeight + s.Y
		out = append(out, Placement{
			Index:  i,
			Row:    l.Rows - 1 - destRow,
			Column: col,
			X:      col * l.CellWidth,
			Y:      l.Height() - bottom,
			W:      s.X,
			H:      s.Y,
		})
	}
	return out
}

// Sizes 提取每张源图的尺寸。
func Sizes(images []domain.PixelBuffer) []image.Point {
	out := make([]image.Point, len(images))
	for i, b := range images {
		out[i] = image.Pt(b.Width, b.Height)
	}
	return out
}

// Compose 把已排好序的源图按网格拼成一张图集。
//
// 规则（硬约束）：
// - 不排序、不缩放、不重采样；源图贴在格子原点（左下），格子剩余部分保持背景
// - 每张源图逐行复制 Width*4 个分量，绝不越过源图声明的边界读取
// - 全有或全无：任何一张源图无效 => 不分配输出，直接返回错误
// - 输入缓冲只读
func Compose(images []domain.PixelBuffer, columns int, order domain.RowOrder, bg Color) (domain.PixelBuffer, Layout, error) {
	for i := range images {
		if err := images[i].Validate(); err != nil {
			return domain.PixelBuffer{}, Layout{}, &InvalidImageError{Index: i, Err: err}
		}
	}

	l, err := Plan(Sizes(images), columns)
	if err != nil {
		return domain.PixelBuffer{}, Layout{}, err
	}

	dst := domain.NewPixelBuffer(l.Width(), l.Height(), bg)
	stride := dst.Width * 4

	for i, src := range images {
		_, col := l.Cell(i)
		destRow := l.DestRow(i, order)
		x0 := col * l.CellWidth * 4
		n := src.Width * 4

		for y := 0; y < src.Height; y++ {
			off := (destRow*l.CellHeight+y)*stride + x0
			copy(dst.Pix[off:off+n], src.Row(y))
		}
	}
	return dst, l, nil
}
