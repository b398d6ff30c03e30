package util

import (
	"errors"
	"fmt"
)

// 错误分类，业务错误通过 %w 包装后用 errors.Is 判断
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrRender             = errors.New("render failed")
	ErrDispatch           = errors.New("dispatch failed")
	ErrAggregationFailure = errors.New("aggregation failed")
)

var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrQuizNotFound    = fmt.Errorf("quiz %w", ErrNotFound)
	ErrSubjectNotFound = fmt.Errorf("subject %w", ErrNotFound)
	ErrJobNotFound     = fmt.Errorf("job %w", ErrNotFound)

	ErrInvalidAnswers = fmt.Errorf("invalid answers: %w", ErrValidation)
	ErrInvalidQuiz    = fmt.Errorf("invalid quiz: %w", ErrValidation)

	ErrWaitTimeout           = errors.New("timed out waiting for job")
	ErrJobFailed             = errors.New("job failed")
	ErrStatisticsUnavailable = errors.New("statistics unavailable")
	ErrPermissionDenied      = errors.New("permission denied")
)
