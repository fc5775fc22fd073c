package catalog

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// file 是带有列定义的目录文件格式
type file struct {
	Attributes []Attribute `json:"attributes"`
	Entities   []Entity    `json:"entities"`
}

// Parse 解析目录文件内容。
// 支持两种格式：{"attributes": [...], "entities": [...]}，或者只有实体的数组（使用 DefaultSchema）。
func Parse(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("目录文件为空")
	}

	if trimmed[0] == '[' {
		var entities []Entity
		if err := json.Unmarshal(trimmed, &entities); err != nil {
			return nil, fmt.Errorf("解析实体数组失败: %w", err)
		}
		return New(DefaultSchema, entities)
	}

	var f file
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil, fmt.Errorf("解析目录文件失败: %w", err)
	}
	return New(f.Attributes, f.Entities)
}

// Load 从磁盘读取并解析目录文件，应在启动时且仅调用一次
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取目录文件 %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("目录文件 %s 无效: %w", path, err)
	}
	log.Info().Int("entities", c.Len()).Int("attributes", len(c.Schema())).Msg("实体目录加载成功")
	return c, nil
}
