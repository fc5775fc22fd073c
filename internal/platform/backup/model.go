package backup

import "time"

// ArchivedTarget 是 daily:targets 中一天的记录
type ArchivedTarget struct {
	Day       string `gorm:"primaryKey;type:varchar(10)"`
	Ref       string `gorm:"not null;type:varchar(255)"`
	UpdatedAt time.Time
}

// ArchivedLastPicked 是一个 daily:lastPicked:{ref} 键
type ArchivedLastPicked struct {
	EntityRef string `gorm:"primaryKey;type:varchar(255)"`
	Day       string `gorm:"not null;type:varchar(10)"`
	UpdatedAt time.Time
}

// ArchivedScore 是 scores:{day} 中的一个成员，以及 guesses:{day} 中对应的猜测序列
type ArchivedScore struct {
	Day      string `gorm:"primaryKey;type:varchar(10)"`
	Player   string `gorm:"primaryKey;type:varchar(64)"`
	Attempts int    `gorm:"not null"`
	Guesses  string `gorm:"type:text"`
}

// snapshot 是某一时刻 Store 中需要归档的全部数据
type snapshot struct {
	targets    []ArchivedTarget
	lastPicked []ArchivedLastPicked
	scores     []ArchivedScore
}
