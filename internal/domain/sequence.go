package domain

// MaskPlaceholder 是 mask 中替换数字段的占位符。
// 文件名本身若含 '#'，mask -> 文件名的还原不保证正确（已接受的限制）。
const MaskPlaceholder = "#"

// FrameFile 是序列中的一帧（只描述文件名，不读内容）。
//
// 不变量：
// - Name 去掉 Digits 这一段并替换为占位符后，必须等于所属序列的 mask
// - Frame 是 Digits 的数值（前导零丢弃）；超出 int 范围时为 -1
type FrameFile struct {
	Frame  int
	Digits string
	Name   string
}

// Sequences 是按 mask 分组的发现结果。
// 组内顺序不保证；生成前必须显式排序（见 sequence.Members）。
type Sequences map[string][]FrameFile

// SequenceSummary 用于展示：每个 mask 的成员数量。
type SequenceSummary struct {
	Mask  string `json:"mask"`
	Count int    `json:"count"`
}
