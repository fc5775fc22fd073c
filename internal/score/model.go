package score

import "errors"

var (
	// ErrValidation 表示提交的成绩格式错误，不会产生任何写入
	ErrValidation = errors.New("invalid score submission")
	// ErrAlreadyPlayed 表示玩家当天已经提交过成绩
	ErrAlreadyPlayed = errors.New("already played")
)

// Submission 是一次成绩提交
type Submission struct {
	PlayerID int   `validate:"gt=0"`
	Attempts int   `validate:"gt=0"`
	GuessIDs []int `validate:"omitempty,dive,gt=0"`
}

// 成绩提交的结果，用于指标标签
const (
	outcomeAccepted      = "accepted"
	outcomeAlreadyPlayed = "already_played"
	outcomeInvalid       = "invalid"
	outcomeError         = "error"
)
