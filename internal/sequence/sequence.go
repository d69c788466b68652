package sequence

import (
	"sort"
	"strconv"

	"github.com/John-Robertt/texatlas/internal/domain"
)

// Split 定位 name 中最右侧的一段极大数字串（其后只剩非数字字符），并用占位符替换它。
//
// 规则：
// - 反向两指针扫描：end 跳过尾部非数字，start 再向左吞掉整段数字
// - 整段数字（不论长度、是否有前导零）只替换为一个占位符
// - 没有任何数字：ok=false（调用方跳过该文件）
// - 只识别 ASCII 0-9，大小写敏感
func Split(name string) (mask, digits string, ok bool) {
	end := len(name)
	for end > 0 && !isDigit(name[end-1]) {
		end--
	}
	if end == 0 {
		return "", "", false
	}
	start := end - 1
	for start > 0 && isDigit(name[start-1]) {
		start--
	}
	return name[:start] + domain.MaskPlaceholder + name[end:], name[start:end], true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// frameNumber 把数字串转为帧号；超出 int 范围时返回 -1（帧号只用于展示，不参与分组与排序）。
func frameNumber(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return -1
	}
	return n
}

// Discover 把文件名按 mask 分组。
//
// - 纯函数：相同输入集合 => 相同分组（与输入顺序无关）
// - 组内成员顺序不保证；消费前用 Members 显式排序
// - skipped 是没有数字段、被排除在所有序列之外的文件名（已排序，便于报告）
func Discover(names []string) (groups domain.Sequences, skipped []string) {
	groups = make(domain.Sequences, 16)
	for _, name := range names {
		mask, digits, ok := Split(name)
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		groups[mask] = append(groups[mask], domain.FrameFile{
			Frame:  frameNumber(digits),
			Digits: digits,
			Name:   name,
		})
	}
	sort.Strings(skipped)
	return groups, skipped
}

// List 返回每个序列的 mask 与成员数，按 mask 字典序稳定输出。
func List(groups domain.Sequences) []domain.SequenceSummary {
	out := make([]domain.SequenceSummary, 0, len(groups))
	for mask, members := range groups {
		out = append(out, domain.SequenceSummary{Mask: mask, Count: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mask < out[j].Mask })
	return out
}

// Members 返回 mask 对应序列的成员副本，按文件名字典序排序（生成图集前的排序步骤）。
func Members(groups domain.Sequences, mask string) ([]domain.FrameFile, bool) {
	members, ok := groups[mask]
	if !ok {
		return nil, false
	}
	out := append([]domain.FrameFile(nil), members...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, true
}
