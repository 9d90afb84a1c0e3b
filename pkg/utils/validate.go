package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"artist-calendar-backend/pkg/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateStruct runs `validate` tags on v and turns failures into a
// ValidationError naming the offending fields.
func ValidateStruct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid input")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperr.Validation("invalid input: %s", strings.Join(parts, ", "))
}

// CheckID 路径中的资源ID必须是UUID；否则按不存在处理，避免数据库报类型错误
func CheckID(id, what string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound(what)
	}
	return nil
}
