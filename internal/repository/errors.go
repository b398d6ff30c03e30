package repository

import (
	"errors"

	"gorm.io/gorm"
)

// notFound 把 gorm 的记录不存在转换为业务错误
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
