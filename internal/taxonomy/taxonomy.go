// Package taxonomy はプロジェクトのカテゴリツリー（local + Erasmus KA1/KA2）を定義する。
package taxonomy

import "strings"

// Category はカテゴリツリーの葉を表す正規化済みの名前
type Category string

const (
	Local Category = "local"
	KA152 Category = "ka152"
	KA153 Category = "ka153"
	KA210 Category = "ka210"
	KA220 Category = "ka220"
)

// Group は Erasmus 配下の中間ノード（"k1" / "k2"）。local はグループを持たない。
type Group string

const (
	GroupNone Group = ""
	GroupK1   Group = "k1"
	GroupK2   Group = "k2"
)

// Leaf はカテゴリ 1 件分のマッピング表。
// ListKey は一覧 API の JSON キー、FileKey は projects.json 上のキー。
type Leaf struct {
	Category Category
	Group    Group
	ListKey  string
	FileKey  string
}

// leaves はツリー順（一覧出力・移行の走査順）に並んだ全カテゴリ
var leaves = []Leaf{
	{Category: Local, Group: GroupNone, ListKey: "local", FileKey: "local"},
	{Category: KA152, Group: GroupK1, ListKey: "ka152", FileKey: "k152"},
	{Category: KA153, Group: GroupK1, ListKey: "ka153", FileKey: "k153"},
	{Category: KA210, Group: GroupK2, ListKey: "ka210", FileKey: "ka210"},
	{Category: KA220, Group: GroupK2, ListKey: "k220", FileKey: "k220"},
}

// aliases は旧データ・旧 API で使われていた表記
var aliases = map[string]Category{
	"k152": KA152,
	"k153": KA153,
	"k210": KA210,
	"k220": KA220,
}

// Normalize は入力カテゴリを正規名に変換する。
// 大文字小文字と前後の空白は無視する。未知の値は小文字化したものをそのまま返す。
func Normalize(s string) Category {
	v := strings.ToLower(strings.TrimSpace(s))
	if c, ok := aliases[v]; ok {
		return c
	}
	return Category(v)
}

// IsValidCategory は s が（エイリアスを含め）既知のカテゴリかを返す
func IsValidCategory(s string) bool {
	_, ok := LeafOf(Normalize(s))
	return ok
}

// Categories はツリー順のカテゴリ一覧を返す
func Categories() []Category {
	out := make([]Category, len(leaves))
	for i, l := range leaves {
		out[i] = l.Category
	}
	return out
}

// Leaves はツリー順のマッピング表のコピーを返す
func Leaves() []Leaf {
	out := make([]Leaf, len(leaves))
	copy(out, leaves)
	return out
}

// LeafOf は正規化済みカテゴリに対応する Leaf を返す
func LeafOf(c Category) (Leaf, bool) {
	for _, l := range leaves {
		if l.Category == c {
			return l, true
		}
	}
	return Leaf{}, false
}

// IsKA1 / IsKA2 は統計用のグループ判定
func (c Category) IsKA1() bool { return c == KA152 || c == KA153 }
func (c Category) IsKA2() bool { return c == KA210 || c == KA220 }

func (c Category) String() string { return string(c) }
