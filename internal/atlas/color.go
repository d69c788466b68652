package atlas

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color 是一个 float RGBA 像素（不预乘）。
type Color = [4]float32

// DefaultBackground 是空 tile 与格子剩余部分的背景：不透明黑。
var DefaultBackground = Color{0, 0, 0, 1}

// ParseColor 解析 "#rrggbb" / "#rgb" 形式的背景色，alpha 取 [0, 1]。
// 空串返回 DefaultBackground 的 RGB。
func ParseColor(hex string, alpha float64) (Color, error) {
	if alpha < 0 || alpha > 1 {
		return Color{}, fmt.Errorf("background_alpha 必须在 [0, 1] 内，实际 %v", alpha)
	}
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return Color{0, 0, 0, float32(alpha)}, nil
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("background 无效：%q", hex)
	}
	return Color{float32(c.R), float32(c.G), float32(c.B), float32(alpha)}, nil
}
