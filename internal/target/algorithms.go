package target

import (
	"encoding/base64"
	"unicode/utf8"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
)

// --- 算法常量 ---
const (
	recencyRampDays = 10.0 // 权重在多少天内从下限线性恢复到1
	minWeight       = 0.05 // 刚被选中的实体的权重下限，永远不会完全排除
	maxWeight       = 1.0
)

// RecencyWeight 根据距离上次被选中的天数计算权重。
// 从未被选中为 1；否则为 clamp(days/10, 0.05, 1)。未来日期（负数）按下限处理。
func RecencyWeight(daysSince int, everPicked bool) float64 {
	if !everPicked {
		return maxWeight
	}
	w := float64(daysSince) / recencyRampDays
	if w < minWeight {
		return minWeight
	}
	if w > maxWeight {
		return maxWeight
	}
	return w
}

// PickWeighted 按目录顺序遍历，从 r 中依次减去每个权重，剩余值 <= 0 时选中当前下标。
// r 应位于 [0, sum(weights))；浮点误差导致遍历结束仍未选中时，返回最后一个下标。
func PickWeighted(weights []float64, r float64) int {
	if len(weights) == 0 {
		return -1
	}
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// TotalWeight 返回权重之和
func TotalWeight(weights []float64) float64 {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	return total
}

// Resolve 把引用解析为目录实体。依次尝试：id、名称（精确或忽略重音）、
// 最早的排期文件使用的 base64 编码名称。找不到时返回 false。
func Resolve(c *catalog.Catalog, r Ref) (catalog.Entity, bool) {
	if r.ID > 0 {
		return c.ByID(r.ID)
	}
	if r.Name == "" {
		return catalog.Entity{}, false
	}
	if e, ok := c.Resolve(r.Name); ok {
		return e, true
	}
	if decoded, err := base64.StdEncoding.DecodeString(r.Name); err == nil && utf8.Valid(decoded) {
		return c.ByName(string(decoded))
	}
	return catalog.Entity{}, false
}
