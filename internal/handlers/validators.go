package handlers

import (
	"fmt"

	"keeper/internal/rbac"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义校验标签：permaction 要求值属于权限目录
func RegisterValidators(catalog *rbac.Catalog) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("permaction", func(fl validator.FieldLevel) bool {
		return catalog.Contains(fl.Field().String())
	})
}
