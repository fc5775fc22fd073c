package compare

import (
	"strings"

	"github.com/SlpAus/daily-guess-backend/internal/catalog"
)

// Status 是单个属性的比较结果
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusPartial   Status = "partial"
	StatusIncorrect Status = "incorrect"
)

// Direction 提示目标值相对于猜测值的方向
type Direction string

const (
	DirectionNone Direction = ""
	// DirectionUp 目标比猜测更高
	DirectionUp Direction = "up"
	// DirectionDown 目标比猜测更低
	DirectionDown Direction = "down"
)

// Result 是 Classify 的返回值。Score 只对段位/数字/刻度类型有意义。
type Result struct {
	Status    Status
	Direction Direction
	Score     *int
}

// Classify 把猜测值与目标值按属性类型比较，缺失值按空字符串/空集合处理，从不 panic
func Classify(guess, target any, kind catalog.AttributeKind) Result {
	switch {
	case kind == catalog.KindSet:
		return Result{Status: classifySet(guess, target)}
	case kind == catalog.KindNumber:
		return classifyNumber(guess, target)
	case kind.IsOrdinal():
		g, t := OrdinalScore(kind, guess), OrdinalScore(kind, target)
		res := Result{Status: StatusIncorrect, Direction: direction(float64(g), float64(t)), Score: &g}
		if g == t {
			res.Status = StatusCorrect
		}
		return res
	default:
		return Result{Status: classifyScalar(guess, target)}
	}
}

func classifyScalar(guess, target any) Status {
	g := strings.ToLower(strings.TrimSpace(text(guess)))
	t := strings.ToLower(strings.TrimSpace(text(target)))
	if g == t {
		return StatusCorrect
	}
	return StatusIncorrect
}

func classifySet(guess, target any) Status {
	g, t := tokens(guess), tokens(target)

	shared := 0
	for tok := range g {
		if _, ok := t[tok]; ok {
			shared++
		}
	}
	switch {
	case shared == len(g) && shared == len(t):
		return StatusCorrect
	case shared > 0:
		return StatusPartial
	default:
		return StatusIncorrect
	}
}

func classifyNumber(guess, target any) Result {
	g, gok := number(guess)
	t, tok := number(target)
	if !gok || !tok {
		return Result{Status: classifyScalar(guess, target)}
	}
	res := Result{Status: StatusIncorrect, Direction: direction(g, t)}
	if g == t {
		res.Status = StatusCorrect
	}
	return res
}

func direction(guess, target float64) Direction {
	switch {
	case target > guess:
		return DirectionUp
	case target < guess:
		return DirectionDown
	}
	return DirectionNone
}

// AttributeFeedback 是一行结果中的一个格子
type AttributeFeedback struct {
	Key       string                `json:"key"`
	Label     string                `json:"label"`
	Kind      catalog.AttributeKind `json:"kind"`
	Status    Status                `json:"status"`
	Value     any                   `json:"value"`
	Score     *int                  `json:"score,omitempty"`
	Direction Direction             `json:"direction,omitempty"`
}

// Feedback 是一次猜测的完整反馈
type Feedback struct {
	Correct    bool                `json:"correct"`
	EntityID   int                 `json:"entityId"`
	Name       string              `json:"name"`
	Attributes []AttributeFeedback `json:"attributes"`
}

// CompareEntities 按 schema 的顺序逐列比较猜测实体与目标实体
func CompareEntities(schema []catalog.Attribute, guess, target catalog.Entity) Feedback {
	fb := Feedback{
		Correct:    guess.ID == target.ID,
		EntityID:   guess.ID,
		Name:       guess.Name,
		Attributes: make([]AttributeFeedback, 0, len(schema)),
	}
	for _, attr := range schema {
		gv := guess.Value(attr.Key)
		res := Classify(gv, target.Value(attr.Key), attr.Kind)
		fb.Attributes = append(fb.Attributes, AttributeFeedback{
			Key:       attr.Key,
			Label:     attr.Label,
			Kind:      attr.Kind,
			Status:    res.Status,
			Value:     gv,
			Score:     res.Score,
			Direction: res.Direction,
		})
	}
	return fb
}
