package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseRoster 从HTML表格中读取实体。表头单元格按属性 key 或 label 匹配（忽略大小写和重音），
// 额外识别 id 和 image 两列。没有 id 列时按行号从 1 开始编号。
func ParseRoster(r io.Reader, selector string, schema []Attribute) ([]Entity, error) {
	if len(schema) == 0 {
		schema = DefaultSchema
	}
	if selector == "" {
		selector = "table"
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("没有找到匹配 %q 的表格", selector)
	}

	byHeader := make(map[string]Attribute, len(schema)*2)
	for _, a := range schema {
		byHeader[Normalize(a.Key)] = a
		if a.Label != "" {
			byHeader[Normalize(a.Label)] = a
		}
	}

	// columns[i] 是第 i 列对应的属性 key，空字符串表示忽略该列
	var columns []string
	table.Find("tr").First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
		header := Normalize(cell.Text())
		switch header {
		case "id", "image", "imageid":
			columns = append(columns, header)
			return
		}
		if a, ok := byHeader[header]; ok {
			columns = append(columns, a.Key)
		} else {
			columns = append(columns, "")
		}
	})
	if !contains(columns, "name") {
		return nil, fmt.Errorf("表头中缺少 name 列")
	}

	kinds := make(map[string]AttributeKind, len(schema))
	for _, a := range schema {
		kinds[a.Key] = a.Kind
	}

	var entities []Entity
	var rowErr error
	table.Find("tr").Slice(1, goquery.ToEnd).EachWithBreak(func(i int, row *goquery.Selection) bool {
		e := Entity{ID: i + 1, Attributes: make(map[string]any)}
		row.Find("td").Each(func(j int, cell *goquery.Selection) {
			if j >= len(columns) || columns[j] == "" {
				return
			}
			text := strings.TrimSpace(cell.Text())
			switch columns[j] {
			case "id":
				id, err := strconv.Atoi(text)
				if err != nil || id <= 0 {
					rowErr = fmt.Errorf("第 %d 行的 id %q 不是正整数", i+1, text)
					return
				}
				e.ID = id
			case "image", "imageid":
				e.ImageID = text
			case "name":
				e.Name = text
			default:
				if text == "" {
					return
				}
				v, err := rosterValue(kinds[columns[j]], text)
				if err != nil {
					rowErr = fmt.Errorf("第 %d 行的 %s: %w", i+1, columns[j], err)
					return
				}
				e.Attributes[columns[j]] = v
			}
		})
		if rowErr != nil {
			return false
		}
		// 空行直接跳过
		if e.Name == "" {
			return true
		}
		entities = append(entities, e)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("表格中没有任何实体")
	}
	return entities, nil
}

// rosterValue 把单元格文本转换为目录文件中该类型使用的JSON值
func rosterValue(kind AttributeKind, text string) (any, error) {
	switch kind {
	case KindNumber:
		f, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("%q 不是数字", text)
		}
		return f, nil
	case KindSet:
		parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '/' || r == ';' })
		set := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				set = append(set, p)
			}
		}
		return set, nil
	default:
		return text, nil
	}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
