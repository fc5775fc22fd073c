package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// AttributeKind 决定了一个属性如何与目标进行比较
type AttributeKind string

const (
	// KindScalar 字符串或数字，忽略大小写与首尾空白的精确比较
	KindScalar AttributeKind = "scalar"
	// KindNumber 数字，精确比较，额外给出大小方向
	KindNumber AttributeKind = "number"
	// KindSet 无序字符串集合：完全相等 / 有交集 / 无交集
	KindSet AttributeKind = "set"
	// KindTier 段位文本，例如 "Gold 3"、"Emerald 1"
	KindTier AttributeKind = "tier"
	// KindNumericToken 文本中第一个连续数字，例如 "PC 3"
	KindNumericToken AttributeKind = "numeric_token"
	// KindScale 1-9 自定义刻度，例如 "semi neuille"
	KindScale AttributeKind = "scale"
)

// IsOrdinal 表示该类型的比较会产生可比较的整数得分
func (k AttributeKind) IsOrdinal() bool {
	switch k {
	case KindNumber, KindTier, KindNumericToken, KindScale:
		return true
	}
	return false
}

func (k AttributeKind) valid() bool {
	switch k {
	case KindScalar, KindNumber, KindSet, KindTier, KindNumericToken, KindScale:
		return true
	}
	return false
}

// Attribute 描述目录中一个可比较的列
type Attribute struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Kind  AttributeKind `json:"kind"`
}

// Entity 是目录中的一行，也就是被猜测的对象。
// JSON 形式是扁平的：{"id":1,"name":"...","age":27,"cheveux":["brun"],...}
type Entity struct {
	ID         int
	Name       string
	ImageID    string
	Attributes map[string]any
}

// Value 返回给定属性键对应的原始值；name 和 id 也可以作为属性读取
func (e *Entity) Value(key string) any {
	switch key {
	case "name":
		return e.Name
	case "id":
		return e.ID
	}
	return e.Attributes[key]
}

// UnmarshalJSON 把扁平的JSON对象拆分为固定字段和属性表
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, ok := raw["id"].(float64)
	if !ok || id != math.Trunc(id) || id <= 0 || id > math.MaxInt32 {
		return fmt.Errorf("实体缺少合法的正整数 id: %v", raw["id"])
	}
	name, ok := raw["name"].(string)
	if !ok || name == "" {
		return errors.New("实体缺少 name 字段")
	}

	e.ID = int(id)
	e.Name = name
	e.ImageID = ""
	switch img := raw["imageId"].(type) {
	case string:
		e.ImageID = img
	case float64:
		e.ImageID = fmt.Sprintf("%d", int64(img))
	}

	delete(raw, "id")
	delete(raw, "name")
	delete(raw, "imageId")
	e.Attributes = raw
	return nil
}

// MarshalJSON 输出与目录文件相同的扁平形式
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attributes)+3)
	for k, v := range e.Attributes {
		out[k] = v
	}
	out["id"] = e.ID
	out["name"] = e.Name
	if e.ImageID != "" {
		out["imageId"] = e.ImageID
	}
	return json.Marshal(out)
}

// DefaultSchema 是目录文件只包含实体数组时使用的列定义
var DefaultSchema = []Attribute{
	{Key: "name", Label: "Nom", Kind: KindScalar},
	{Key: "age", Label: "Âge", Kind: KindNumber},
	{Key: "cheveux", Label: "Cheveux", Kind: KindSet},
	{Key: "JeuPref", Label: "Jeu", Kind: KindSet},
	{Key: "RelationFamille", Label: "Famille", Kind: KindScalar},
	{Key: "PcPref", Label: "PC", Kind: KindNumericToken},
	{Key: "régio", Label: "Région", Kind: KindSet},
	{Key: "neuillitude", Label: "Neuille", Kind: KindScale},
	{Key: "RankLol", Label: "Rank", Kind: KindTier},
	{Key: "BoissonPref", Label: "Boisson", Kind: KindSet},
}

// ErrNotFound 表示一个实体引用（id 或名称）在目录中没有匹配项
var ErrNotFound = errors.New("entity not found")
