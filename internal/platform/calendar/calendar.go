// Package calendar produces the canonical day identifiers that key all daily state.
package calendar

import (
	"fmt"
	"time"
	_ "time/tzdata" // 保证容器内没有系统时区数据库时也能加载 Europe/Paris
)

// Layout 是日期标识的格式 (YYYY-MM-DD)
const Layout = "2006-01-02"

// DayID 是在固定时区下计算出的日历日字符串
type DayID string

func (d DayID) String() string { return string(d) }

// Clock 在一个固定时区内计算"今天"，与宿主机的时区设置无关
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock 加载给定名称的时区并创建一个使用系统时间的Clock
func NewClock(timezone string) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("无法加载时区 %q: %w", timezone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock 创建一个总是返回给定时刻的Clock，用于测试和离线工具
func NewFixedClock(loc *time.Location, at time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return at }}
}

// Location 返回Clock使用的时区
func (c *Clock) Location() *time.Location { return c.loc }

// Today 返回当前时刻在固定时区下的日期标识
func (c *Clock) Today() DayID {
	return DayID(c.now().In(c.loc).Format(Layout))
}

// Yesterday 返回今天的前一天
func (c *Clock) Yesterday() DayID {
	t, _ := time.ParseInLocation(Layout, string(c.Today()), time.UTC)
	return DayID(t.AddDate(0, 0, -1).Format(Layout))
}

// Parse 校验并规范化一个日期标识
func Parse(s string) (DayID, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return DayID(t.Format(Layout)), nil
}

// DaysBetween 返回从 from 到 to 经过的整日数（to 早于 from 时为负数）。
// 两个日期都按UTC零点解析，因此夏令时切换不会产生23或25小时的"天"。
func DaysBetween(from, to DayID) (int, error) {
	a, err := time.Parse(Layout, string(from))
	if err != nil {
		return 0, fmt.Errorf("无效的日期 %q: %w", from, err)
	}
	b, err := time.Parse(Layout, string(to))
	if err != nil {
		return 0, fmt.Errorf("无效的日期 %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}
