package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器（序列帧常见格式）
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // 注册 WebP 解码器（只读）

	"github.com/John-Robertt/texatlas/internal/domain"
)

const (
	FormatPNG  = "png"
	FormatTIFF = "tiff"
	FormatBMP  = "bmp"
)

// Decode 把任意已注册格式的图片解码为 float RGBA 缓冲。
//
// 约束：
// - 输出第 0 行是图片最底部一行（文件里的最后一行）
// - 分量为非预乘 alpha，取值 [0, 1]
// - 返回值 format 是 image.Decode 识别出的格式名
func Decode(b []byte) (domain.PixelBuffer, string, error) {
	if len(b) == 0 {
		return domain.PixelBuffer{}, "", errors.New("图片数据为空")
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return domain.PixelBuffer{}, "", err
	}

	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if w <= 0 || h <= 0 {
		return domain.PixelBuffer{}, format, errors.New("图片尺寸无效")
	}

	buf := domain.PixelBuffer{Width: w, Height: h, Pix: make([]float32, w*h*4)}
	for y := 0; y < h; y++ {
		row := buf.Row(h - 1 - y)
		for x := 0; x < w; x++ {
			c := color.NRGBA64Model.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.NRGBA64)
			i := x * 4
			row[i] = float32(c.R) / 0xffff
			row[i+1] = float32(c.G) / 0xffff
			row[i+2] = float32(c.B) / 0xffff
			row[i+3] = float32(c.A) / 0xffff
		}
	}
	return buf, format, nil
}

// Encode 把 float RGBA 缓冲编码为 8-bit 图片（png / tiff / bmp）。
// 分量先截断到 [0, 1] 再四舍五入；文件第一行对应缓冲的最后一行。
func Encode(buf domain.PixelBuffer, format string) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		src := buf.Row(buf.Height - 1 - y)
		dst := img.Pix[y*img.Stride : y*img.Stride+buf.Width*4]
		for i, v := range src {
			dst[i] = to8(v)
		}
	}

	var out bytes.Buffer
	var err error
	switch NormalizeFormat(format) {
	case FormatPNG:
		err = png.Encode(&out, img)
	case FormatTIFF:
		err = tiff.Encode(&out, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		err = bmp.Encode(&out, img)
	default:
		return nil, fmt.Errorf("不支持的输出格式：%q", format)
	}
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// NormalizeFormat 把格式名/扩展名统一为 png|tiff|bmp；无法识别时原样返回（小写）。
func NormalizeFormat(s string) string {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch s {
	case "tif":
		return FormatTIFF
	default:
		return s
	}
}

// Ext 返回输出格式对应的文件扩展名（含 '.'）。
func Ext(format string) string {
	switch NormalizeFormat(format) {
	case FormatTIFF:
		return ".tiff"
	case FormatBMP:
		return ".bmp"
	default:
		return ".png"
	}
}

// Supported 判断 format 是否是可编码的输出格式。
func Supported(format string) bool {
	switch NormalizeFormat(format) {
	case FormatPNG, FormatTIFF, FormatBMP:
		return true
	default:
		return false
	}
}

func to8(v float32) uint8 {
	if !(v > 0) { // 同时处理 NaN
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(math.Round(float64(v) * 0xff))
}
