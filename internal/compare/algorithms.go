package compare

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
)

// --- 段位 ---

// tierNames 按从低到高排列，得分为 (下标+1)*100
var tierNames = []string{"iron", "bronze", "silver", "gold", "plat", "emerald", "diamond", "master", "grandmaster", "challenger"}

// unrankedTokens 出现任一即视为没有段位
var unrankedTokens = []string{"joue pas", "unrank", "not playing"}

var (
	firstDigit     = regexp.MustCompile(`\d`)
	firstDigitRun  = regexp.MustCompile(`\d+`)
	leadingInteger = regexp.MustCompile(`^[+-]?\d+`)
)

// TierScore 把段位文本映射为可比较的整数。
// 段位名按从高到低匹配，这样 "grandmaster" 不会被当成 "master"；
// 第一个数字是小段，数字越小加分越多：(5 - 数字) * 10。
func TierScore(v any) int {
	rank := strings.ToLower(text(v))
	if rank == "" {
		return 0
	}
	for _, token := range unrankedTokens {
		if strings.Contains(rank, token) {
			return 0
		}
	}

	score := 0
	for i := len(tierNames) - 1; i >= 0; i-- {
		if strings.Contains(rank, tierNames[i]) {
			score = (i + 1) * 100
			break
		}
	}
	if score == 0 {
		return 0
	}

	if d := firstDigit.FindString(rank); d != "" {
		score += (5 - int(d[0]-'0')) * 10
	}
	return score
}

// --- 文本中的数字 ---

// NumericTokenScore 取文本中第一段连续数字；数组取第一个元素；没有数字时为 0
func NumericTokenScore(v any) int {
	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return 0
		}
		v = arr[0]
	}
	run := firstDigitRun.FindString(text(v))
	if run == "" {
		return 0
	}
	n, err := strconv.Atoi(run)
	if err != nil {
		return math.MaxInt32
	}
	return n
}

// --- 1-9 刻度 ---

type scaleRule struct {
	match  string
	exact  bool
	points int
}

// scaleRules 按顺序匹配，第一个命中的规则生效
var scaleRules = []scaleRule{
	{match: "pas", points: 1},
	{match: "semi", points: 4},
	{match: "neuille", exact: true, points: 7},
	{match: "elev", points: 9},
}

// ScaleScore 优先使用文本开头的整数，否则按关键字映射到 {1, 4, 7, 9}；无法识别时为 1
func ScaleScore(v any) int {
	s := catalog.Normalize(text(v))
	if n := leadingInteger.FindString(s); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	for _, rule := range scaleRules {
		if rule.exact && s == rule.match {
			return rule.points
		}
		if !rule.exact && strings.Contains(s, rule.match) {
			return rule.points
		}
	}
	return 1
}

// OrdinalScore 按属性类型选择对应的打分函数
func OrdinalScore(kind catalog.AttributeKind, v any) int {
	switch kind {
	case catalog.KindTier:
		return TierScore(v)
	case catalog.KindNumericToken:
		return NumericTokenScore(v)
	case catalog.KindScale:
		return ScaleScore(v)
	}
	return 0
}

// --- 值的规范化 ---

// text 把任意JSON值转换为字符串；nil 为空字符串，数组用逗号连接
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = text(item)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(t, ",")
	}
	return ""
}

// tokens 把值转换为去重后的小写集合；非数组值视为单元素集合，空字符串被忽略
func tokens(v any) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(item any) {
		s := strings.ToLower(strings.TrimSpace(text(item)))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			add(item)
		}
	case []string:
		for _, item := range t {
			add(item)
		}
	default:
		add(v)
	}
	return set
}

// number 尝试把值解释为数字
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
