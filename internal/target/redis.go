package target

import (
	"strconv"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
	"github.com/goccy/go-json"
)

// 定义与每日目标相关的Redis键名
const (
	// TargetsKey 是一个Redis Hash，当前的存储格式。
	// Field: 日期 (YYYY-MM-DD)
	// Value: 实体引用，优先为数字id，旧数据中可能是名称
	TargetsKey = "daily:targets"

	// LegacyTargetKeyPrefix 是旧版本按天存储目标的字符串键前缀，只读。
	// Key: daily:target:{day}
	LegacyTargetKeyPrefix = "daily:target:"

	// LastPickedKeyPrefix 是记录实体最近一次被选中日期的字符串键前缀。
	// Key: daily:lastPicked:{entityId}（旧数据中可能是 daily:lastPicked:{name}）
	LastPickedKeyPrefix = "daily:lastPicked:"
)

// LegacyTargetKey 返回某一天的旧版目标键
func LegacyTargetKey(day string) string { return LegacyTargetKeyPrefix + day }

// LastPickedKey 返回实体的最近选中日期键
func LastPickedKey(ref string) string { return LastPickedKeyPrefix + ref }

// Ref 是对目录实体的引用：优先使用 id，旧数据只有名称
type Ref struct {
	ID   int
	Name string
}

// IDRef 创建一个基于id的引用
func IDRef(id int) Ref { return Ref{ID: id} }

// ParseRef 解析存储中的引用字符串。规范的十进制正整数被视为id，其余视为名称。
func ParseRef(raw string) Ref {
	if id, err := strconv.Atoi(raw); err == nil && id > 0 && strconv.Itoa(id) == raw {
		return Ref{ID: id}
	}
	return Ref{Name: raw}
}

// IsZero 表示引用为空
func (r Ref) IsZero() bool { return r.ID == 0 && r.Name == "" }

// String 返回引用在存储中的形式
func (r Ref) String() string {
	if r.ID > 0 {
		return strconv.Itoa(r.ID)
	}
	return r.Name
}

type refJSON struct {
	ID   *int   `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// MarshalJSON 输出 {"id": n}，旧数据输出 {"name": "..."}
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.ID > 0 {
		id := r.ID
		return json.Marshal(refJSON{ID: &id})
	}
	return json.Marshal(refJSON{Name: r.Name})
}

// CanonicalRef 在实体可解析时返回基于id的引用，否则原样返回
func CanonicalRef(c *catalog.Catalog, r Ref) Ref {
	if e, ok := Resolve(c, r); ok {
		return IDRef(e.ID)
	}
	return r
}
