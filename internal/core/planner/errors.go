package planner

import (
	"context"
	"errors"

	"promo-meal-planner/internal/pkg/common"
)

// 管線錯誤分類；翻譯與檢索在本地降級，生成與解析錯誤以 status:error 回報
var (
	ErrTranslation = common.ErrTranslationFailure
	ErrRetrieval   = common.ErrRetrievalFailure
	ErrGeneration  = common.ErrGenerationFailure
	ErrParse       = common.ErrParseFailure
)

// PlanError 無法產生餐單時的錯誤
type PlanError struct {
	Kind    *common.CustomError
	Message string
	// Raw 解析失敗時的模型原始輸出
	Raw string
	Err error
}

func (e *PlanError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 同時暴露分類與底層錯誤
func (e *PlanError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func generationError(message string, err error) *PlanError {
	if errors.Is(err, context.DeadlineExceeded) {
		message = "Meal plan generation timed out"
	}
	return &PlanError{Kind: ErrGeneration, Message: message, Err: err}
}

func parseError(raw string, err error) *PlanError {
	return &PlanError{Kind: ErrParse, Message: "Failed to parse generated plan", Raw: raw, Err: err}
}
