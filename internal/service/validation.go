package service

import (
	"learnhub_backend/internal/util"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// RegisterValidations 注册请求结构体用到的自定义规则。
// gin 的绑定校验器和 service 内部的校验器共用同一套规则。
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("trimmin", trimmedMin); err != nil {
		return err
	}
	if err := v.RegisterValidation("trimmax", trimmedMax); err != nil {
		return err
	}
	v.RegisterStructValidation(correctOptionInRange, QuizQuestionReq{})
	return nil
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	if err := RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// validateRequest 让绕过 HTTP 绑定的调用方也走同一套规则
func validateRequest(req interface{}) error {
	if err := requestValidator.Struct(req); err != nil {
		return util.BindError(err)
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

func trimmedLen(fl validator.FieldLevel) (int, int, bool) {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil || fl.Field().Kind() != reflect.String {
		return 0, 0, false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())), limit, true
}

func trimmedMin(fl validator.FieldLevel) bool {
	n, limit, ok := trimmedLen(fl)
	return ok && n >= limit
}

func trimmedMax(fl validator.FieldLevel) bool {
	n, limit, ok := trimmedLen(fl)
	return ok && n <= limit
}

// correctOptionInRange 是唯一的跨字段规则：正确答案下标必须落在选项范围内
func correctOptionInRange(sl validator.StructLevel) {
	q, ok := sl.Current().Interface().(QuizQuestionReq)
	if !ok || q.CorrectOptionIndex == nil {
		return
	}
	if idx := *q.CorrectOptionIndex; idx < 0 || idx >= len(q.Options) {
		sl.ReportError(q.CorrectOptionIndex, "correctOptionIndex", "CorrectOptionIndex", "option_index", "")
	}
}
