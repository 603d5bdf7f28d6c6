package service

import "learnhub_backend/internal/model"

// CountCorrect 按位置比较答案，selected[i] 对应 questions[i]。
// 越界或非法的选项只是不匹配，不在这里报错。
func CountCorrect(questions []model.QuizQuestion, selected []int) int {
	correct := 0
	for i, q := range questions {
		if i < len(selected) && selected[i] == q.CorrectOptionIndex {
			correct++
		}
	}
	return correct
}

// ComputeScore 返回 0-100 的百分制分数，四舍五入（.5 向上）。
// 用整数运算避免浮点误差：round(c/t*100) == (200c + t) / 2t
func ComputeScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (correct*200 + total) / (2 * total)
}

// QuestionReview 是提交后的逐题对照，包含正确答案
type QuestionReview struct {
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	SelectedOption     *int     `json:"selectedOption"`
	IsCorrect          bool     `json:"isCorrect"`
}

// ReviewAnswers 用当前题目重新计算每题对错，不依赖已存的分数
func ReviewAnswers(questions []model.QuizQuestion, selected []int) ([]QuestionReview, int) {
	reviews := make([]QuestionReview, len(questions))
	correct := 0
	for i, q := range questions {
		r := QuestionReview{
			QuestionText:       q.QuestionText,
			Options:            q.Options,
			CorrectOptionIndex: q.CorrectOptionIndex,
		}
		if i < len(selected) {
			s := selected[i]
			r.SelectedOption = &s
			r.IsCorrect = s == q.CorrectOptionIndex
		}
		if r.IsCorrect {
			correct++
		}
		reviews[i] = r
	}
	return reviews, correct
}
