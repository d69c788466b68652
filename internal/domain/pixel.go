package domain

import "fmt"

// PixelBuffer 是一张 float RGBA 图像。
//
// 约束：
// - len(Pix) == Width*Height*4，行主序，每像素 R G B A 四个分量
// - 第 0 行是图像最底部一行（左下原点，与宿主图像坐标一致）
// - 分量取值 [0, 1]，alpha 不预乘
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPixelBuffer 分配 w*h 的缓冲区，并用 fill 铺满每个像素。
func NewPixelBuffer(w, h int, fill [4]float32) PixelBuffer {
	pix := make([]float32, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], fill[:])
	}
	return PixelBuffer{Width: w, Height: h, Pix: pix}
}

// Validate 检查声明尺寸与数据长度是否一致（合成前必须满足，避免越界读）。
func (b PixelBuffer) Validate() error {
	// 0xN / Nx0 是合法的空图（不含像素，合成时只占格子尺寸）。
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("图像尺寸无效：%dx%d", b.Width, b.Height)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("像素数据长度不符：声明 %dx%d（%d 个分量），实际 %d", b.Width, b.Height, want, len(b.Pix))
	}
	return nil
}

// Row 返回第 y 行（从底部数）的分量切片。
func (b PixelBuffer) Row(y int) []float32 {
	off := y * b.Width * 4
	return b.Pix[off : off+b.Width*4]
}

// At 返回 (x, y) 处的 RGBA（y 从底部数）。
func (b PixelBuffer) At(x, y int) [4]float32 {
	i := (y*b.Width + x) * 4
	return [4]float32{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
}

// RowOrder 决定序列第一帧落在左上角还是左下角。
type RowOrder string

const (
	// TopToBottom：第一帧在左上角（默认）。
	TopToBottom RowOrder = "top_to_bottom"
	// BottomToTop：第一帧在左下角。
	BottomToTop RowOrder = "bottom_to_top"
)

// ParseRowOrder 解析配置/CLI 中的行序取值。
func ParseRowOrder(s string) (RowOrder, error) {
	switch RowOrder(s) {
	case TopToBottom, BottomToTop:
		return RowOrder(s), nil
	default:
		return "", fmt.Errorf("row_order 只能是 %s 或 %s，实际是 %q", TopToBottom, BottomToTop, s)
	}
}
