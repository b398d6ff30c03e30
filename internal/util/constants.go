package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const MimePNG = "image/png"

// 统计图片在存储中的目录
const ReportDir = "images"

// 全平台统计图的固定文件名
const (
	AdminSubjectReport = "admin_subject_wise.png"
	AdminMonthReport   = "admin_month_wise.png"
)

// 多次作答的统计策略
const (
	AttemptPolicyAll    = "all"
	AttemptPolicyLatest = "latest"
	AttemptPolicyBest   = "best"
)
