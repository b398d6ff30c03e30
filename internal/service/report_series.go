package service

import (
	"fmt"
	"quiz_master_backend/internal/model"
	"time"
)

// MonthNames 月份显示名称，下标 0 对应一月
type MonthNames [12]string

var DefaultMonthNames = MonthNames{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthNamesFrom 数量不是 12 个时使用默认名称
func MonthNamesFrom(names []string) MonthNames {
	m := DefaultMonthNames
	if len(names) == len(m) {
		copy(m[:], names)
	}
	return m
}

// Name 超出 1-12 时返回月份数字本身
func (m MonthNames) Name(month int) string {
	if month < 1 || month > 12 || m[month-1] == "" {
		return fmt.Sprintf("%d", month)
	}
	return m[month-1]
}

// 用户按科目: 各科平均得分率
func userSubjectSeries(agg model.UserAggregate) ReportSeries {
	s := ReportSeries{XLabel: "Subjects", YLabel: "Average"}
	for _, sub := range agg.Subjects {
		s.Labels = append(s.Labels, sub.Name)
		s.Values = append(s.Values, sub.Average)
	}
	return s
}

// 用户按月份: 各月作答次数
func userMonthSeries(agg model.UserAggregate, months MonthNames) ReportSeries {
	var s ReportSeries
	for _, m := range agg.Months {
		s.Labels = append(s.Labels, fmt.Sprintf("%s (%d)", months.Name(m.Month), m.Count))
		s.Values = append(s.Values, float64(m.Count))
	}
	return s
}

// 平台按科目: 单次作答最高得分率
func platformSubjectSeries(agg model.PlatformAggregate) ReportSeries {
	s := ReportSeries{XLabel: "Subjects", YLabel: "Max Score"}
	for _, sub := range agg.Subjects {
		s.Labels = append(s.Labels, sub.Name)
		s.Values = append(s.Values, sub.MaxRatio)
	}
	return s
}

// 平台月度图: 各科作答次数，标题为生成时所在月份
func platformMonthSeries(agg model.PlatformAggregate, months MonthNames, now time.Time) ReportSeries {
	s := ReportSeries{Title: months.Name(int(now.Month()))}
	for _, sub := range agg.Subjects {
		s.Labels = append(s.Labels, fmt.Sprintf("%s (%d)", sub.Name, sub.UserCount))
		s.Values = append(s.Values, float64(sub.UserCount))
	}
	return s
}
