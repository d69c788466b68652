package sequence

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/John-Robertt/texatlas/internal/domain"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		name       string
		wantMask   string
		wantDigits string
		wantOK     bool
	}{
		{"frame_001.png", "frame_#.png", "001", true},
		{"frame_010.png", "frame_#.png", "010", true},
		{"shot2_take_0042.exr", "shot2_take_#.exr", "0042", true},
		{"render12", "render#", "12", true},
		{"7.png", "#.png", "7", true},
		{"v2.pass3.tif", "v2.pass#.tif", "3", true},
		{"no_digits.png", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		mask, digits, ok := Split(tc.name)
		if ok != tc.wantOK || mask != tc.wantMask || digits != tc.wantDigits {
			t.Fatalf("Split(%q)=(%q,%q,%v)，期望 (%q,%q,%v)", tc.name, mask, digits, ok, tc.wantMask, tc.wantDigits, tc.wantOK)
		}
	}
}

func TestDiscover_VariableLengthRunsShareMask(t *testing.T) {
	groups, skipped := Discover([]string{"frame_001.png", "frame_002.png", "frame_010.png"})
	if len(skipped) != 0 {
		t.Fatalf("不期望 skipped：%v", skipped)
	}
	if len(groups) != 1 {
		t.Fatalf("期望 1 个序列，实际 %d：%v", len(groups), groups)
	}
	members, ok := Members(groups, "frame_#.png")
	if !ok {
		t.Fatalf("期望存在 mask frame_#.png，实际 %v", groups)
	}
	frames := []int{members[0].Frame, members[1].Frame, members[2].Frame}
	if !reflect.DeepEqual(frames, []int{1, 2, 10}) {
		t.Fatalf("帧号不符合预期：%v", frames)
	}
}

func TestDiscover_MaskRoundTrip(t *testing.T) {
	names := []string{
		"a1.png", "a22.png", "b_0003_x.jpg", "b_0004_x.jpg",
		"c9d8e7.tga", "c9d8e6.tga", "plain.txt", "UPPER01.PNG", "upper01.png",
	}
	groups, skipped := Discover(names)

	if !reflect.DeepEqual(skipped, []string{"plain.txt"}) {
		t.Fatalf("skipped 不符合预期：%v", skipped)
	}
	total := 0
	for mask, members := range groups {
		if strings.Count(mask, domain.MaskPlaceholder) != 1 {
			t.Fatalf("mask 必须恰含一个占位符：%q", mask)
		}
		for _, m := range members {
			total++
			if got := strings.Replace(mask, domain.MaskPlaceholder, m.Digits, 1); got != m.Name {
				t.Fatalf("mask %q 还原失败：got=%q want=%q", mask, got, m.Name)
			}
		}
	}
	if total != len(names)-1 {
		t.Fatalf("成员总数不对：%d", total)
	}
	// 大小写敏感：UPPER01.PNG 与 upper01.png 分属不同序列。
	if _, ok := groups["UPPER#.PNG"]; !ok {
		t.Fatalf("缺少 UPPER#.PNG：%v", List(groups))
	}
	if _, ok := groups["upper#.png"]; !ok {
		t.Fatalf("缺少 upper#.png：%v", List(groups))
	}
}

func TestDiscover_PermutationStable(t *testing.T) {
	names := []string{"x_3.png", "x_1.png", "y10.png", "x_2.png", "y9.png", "readme"}
	rev := make([]string, len(names))
	for i := range names {
		rev[len(names)-1-i] = names[i]
	}

	a, sa := Discover(names)
	b, sb := Discover(rev)
	if !reflect.DeepEqual(List(a), List(b)) {
		t.Fatalf("置换后序列不同：%v vs %v", List(a), List(b))
	}
	if !reflect.DeepEqual(sa, sb) {
		t.Fatalf("置换后 skipped 不同：%v vs %v", sa, sb)
	}
	for mask := range a {
		ma, _ := Members(a, mask)
		mb, _ := Members(b, mask)
		if !reflect.DeepEqual(ma, mb) {
			t.Fatalf("mask %q 成员不同：%v vs %v", mask, ma, mb)
		}
	}
}

func TestDiscover_OverflowFrame(t *testing.T) {
	groups, _ := Discover([]string{"f99999999999999999999999.png"})
	members := groups["f#.png"]
	if len(members) != 1 || members[0].Frame != -1 {
		t.Fatalf("超长数字段期望 Frame=-1，实际 %v", members)
	}
}

func TestList_SortedWithCounts(t *testing.T) {
	groups, _ := Discover([]string{"b1", "b2", "a1"})
	got := List(groups)
	want := []domain.SequenceSummary{{Mask: "a#", Count: 1}, {Mask: "b#", Count: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List 不符合预期：got=%v want=%v", got, want)
	}
}

func TestMembers_SortedByFilenameAndCopied(t *testing.T) {
	groups := domain.Sequences{
		"f#.png": {
			{Frame: 10, Digits: "10", Name: "f10.png"},
			{Frame: 2, Digits: "2", Name: "f2.png"},
			{Frame: 1, Digits: "1", Name: "f1.png"},
		},
	}
	got, ok := Members(groups, "f#.png")
	if !ok {
		t.Fatalf("期望命中")
	}
	names := make([]string, 0, len(got))
	for _, m := range got {
		names = append(names, m.Name)
	}
	// 按文件名字典序，而不是帧号。
	if !sort.StringsAreSorted(names) || names[0] != "f1.png" || names[1] != "f10.png" {
		t.Fatalf("排序不符合预期：%v", names)
	}
	got[0].Name = "mutated"
	if groups["f#.png"][2].Name != "f1.png" {
		t.Fatalf("Members 不应修改原分组")
	}

	if _, ok := Members(groups, "nope"); ok {
		t.Fatalf("不存在的 mask 不应命中")
	}
}
