package service

import (
	"fmt"
	"quiz_master_backend/internal/model"
	"quiz_master_backend/internal/util"
	"strconv"
)

// Answers 题目 ID -> 所选选项 ID
type Answers map[uint]uint

// ParseAnswers 把请求中的 {"<questionId>": optionId} 转换为 Answers
// 选项为 0 视为未作答，题目 ID 非正整数时返回 ErrInvalidAnswers
func ParseAnswers(selected map[string]uint) (Answers, error) {
	if selected == nil {
		return nil, fmt.Errorf("%w: missing selected answers", util.ErrInvalidAnswers)
	}

	answers := make(Answers, len(selected))
	for key, optionID := range selected {
		questionID, err := strconv.ParseUint(key, 10, 32)
		if err != nil || questionID == 0 {
			return nil, fmt.Errorf("%w: question id %q", util.ErrInvalidAnswers, key)
		}
		if optionID == 0 {
			continue
		}
		answers[uint(questionID)] = optionID
	}
	return answers, nil
}

// ScoringEngine 按答案键计算一次作答的得分，无副作用
type ScoringEngine struct{}

func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// Score 返回答对题数和总题数
// 未作答的题目计为错误，答案中多余的题目 ID 被忽略
func (e *ScoringEngine) Score(quiz *model.Quiz, answers Answers) (userScore int, totalScore int, err error) {
	if quiz == nil {
		return 0, 0, util.ErrQuizNotFound
	}

	totalScore = len(quiz.Questions)
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		selected, ok := answers[q.ID]
		if !ok {
			continue
		}
		if correct, ok := q.CorrectOptionID(); ok && correct == selected {
			userScore++
		}
	}
	return userScore, totalScore, nil
}
