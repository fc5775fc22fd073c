package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Catalog 是进程范围内只读的实体目录，启动时加载一次，之后可以无锁地并发读取
type Catalog struct {
	schema    []Attribute
	entities  []Entity
	idToIndex map[int]int
	nameIndex map[string]int
	foldIndex map[string]int
}

// New 校验实体并建立索引。id 必须为正且唯一，name 必须唯一。
func New(schema []Attribute, entities []Entity) (*Catalog, error) {
	if len(entities) == 0 {
		return nil, fmt.Errorf("目录为空，无法初始化")
	}
	if len(schema) == 0 {
		schema = DefaultSchema
	}
	seenKeys := make(map[string]bool, len(schema))
	for _, a := range schema {
		if a.Key == "" {
			return nil, fmt.Errorf("属性定义缺少 key")
		}
		if !a.Kind.valid() {
			return nil, fmt.Errorf("属性 %s 的类型 %q 无效", a.Key, a.Kind)
		}
		if seenKeys[a.Key] {
			return nil, fmt.Errorf("属性 %s 重复定义", a.Key)
		}
		seenKeys[a.Key] = true
	}

	c := &Catalog{
		schema:    append([]Attribute(nil), schema...),
		entities:  append([]Entity(nil), entities...),
		idToIndex: make(map[int]int, len(entities)),
		nameIndex: make(map[string]int, len(entities)),
		foldIndex: make(map[string]int, len(entities)),
	}
	for i, e := range c.entities {
		if e.ID <= 0 {
			return nil, fmt.Errorf("实体 %q 的 id 必须为正整数", e.Name)
		}
		if _, dup := c.idToIndex[e.ID]; dup {
			return nil, fmt.Errorf("实体 id %d 重复", e.ID)
		}
		if _, dup := c.nameIndex[e.Name]; dup {
			return nil, fmt.Errorf("实体名称 %q 重复", e.Name)
		}
		c.idToIndex[e.ID] = i
		c.nameIndex[e.Name] = i
		// 折叠后的名称冲突时保留先出现的实体，精确名称查找不受影响
		if _, dup := c.foldIndex[Normalize(e.Name)]; !dup {
			c.foldIndex[Normalize(e.Name)] = i
		}
	}
	return c, nil
}

// Schema 返回属性定义（按展示顺序）
func (c *Catalog) Schema() []Attribute { return c.schema }

// Len 返回实体数量
func (c *Catalog) Len() int { return len(c.entities) }

// Entities 按目录顺序返回所有实体，调用方不得修改
func (c *Catalog) Entities() []Entity { return c.entities }

// First 返回目录中的第一个实体
func (c *Catalog) First() Entity { return c.entities[0] }

// ByID 按 id 查找实体
func (c *Catalog) ByID(id int) (Entity, bool) {
	i, ok := c.idToIndex[id]
	if !ok {
		return Entity{}, false
	}
	return c.entities[i], true
}

// ByName 先按精确名称查找，再按忽略大小写和重音的名称查找
func (c *Catalog) ByName(name string) (Entity, bool) {
	if i, ok := c.nameIndex[name]; ok {
		return c.entities[i], true
	}
	if i, ok := c.foldIndex[Normalize(name)]; ok {
		return c.entities[i], true
	}
	return Entity{}, false
}

// Resolve 接受数字 id 字符串或名称，返回匹配的实体。找不到时返回 false，从不 panic。
func (c *Catalog) Resolve(ref string) (Entity, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Entity{}, false
	}
	if id, err := strconv.Atoi(ref); err == nil && strconv.Itoa(id) == ref {
		if e, ok := c.ByID(id); ok {
			return e, true
		}
	}
	return c.ByName(ref)
}

// Normalize 去掉重音、统一小写并去掉首尾空白，"Élevé " 与 "eleve" 视为相同
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
