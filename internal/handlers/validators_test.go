package handlers

import (
	"testing"

	"keeper/internal/rbac"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermActionValidator(t *testing.T) {
	require.NoError(t, RegisterValidators(rbac.DefaultCatalog()))

	ok := CreateRoleRequest{Name: "editor", Permissions: []string{"create_post", "edit_any_post"}}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	empty := SetPermissionsRequest{}
	assert.NoError(t, binding.Validator.ValidateStruct(&empty))

	bad := CreateRoleRequest{Name: "editor", Permissions: []string{"create_post", "launch_rockets"}}
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	unnamed := CreateRoleRequest{Permissions: []string{"create_post"}}
	assert.Error(t, binding.Validator.ValidateStruct(&unnamed))
}
