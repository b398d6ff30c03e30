package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IdentityHash 对邮箱做稳定哈希，同一用户的统计图总是同一个文件名
func IdentityHash(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])[:16]
}

func UserSubjectReportName(email string) string {
	return "by_subject-" + IdentityHash(email) + ".png"
}

func UserMonthReportName(email string) string {
	return "by_month-" + IdentityHash(email) + ".png"
}
