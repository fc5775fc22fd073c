package score

import "strconv"

// 定义与成绩相关的Redis键名
const (
	// PlayedKeyPrefix 是玩家当天已提交成绩的标记键前缀，带有过期时间。
	// Key: played:{day}:{playerId}
	PlayedKeyPrefix = "played:"

	// ScoresKeyPrefix 是每天成绩的有序集合键前缀。
	// Member: 玩家id
	// Score: 尝试次数
	ScoresKeyPrefix = "scores:"

	// GuessesKeyPrefix 是每天猜测序列的Hash键前缀。
	// Field: 玩家id
	// Value: 按顺序猜测的实体id的JSON数组
	GuessesKeyPrefix = "guesses:"
)

// PlayedKey 返回玩家当天的标记键
func PlayedKey(day string, playerID int) string {
	return PlayedKeyPrefix + day + ":" + strconv.Itoa(playerID)
}

// ScoresKey 返回某一天的成绩有序集合键
func ScoresKey(day string) string { return ScoresKeyPrefix + day }

// GuessesKey 返回某一天的猜测序列键
func GuessesKey(day string) string { return GuessesKeyPrefix + day }

// Member 返回玩家在成绩集合中的成员名
func Member(playerID int) string { return strconv.Itoa(playerID) }
