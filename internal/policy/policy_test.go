package policy_test

import (
	"testing"

	"achievement-service/internal/policy"
	"achievement-service/internal/user"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities(t *testing.T) {
	student := policy.Actor{UserID: 1, Role: user.RoleStudent, Active: true}
	other := policy.Actor{UserID: 2, Role: user.RoleStudent, Active: true}
	faculty := policy.Actor{UserID: 3, Role: user.RoleFaculty, Active: true}
	admin := policy.Actor{UserID: 4, Role: user.RoleAdmin, Active: true}
	retired := policy.Actor{UserID: 5, Role: user.RoleFaculty, Active: false}

	t.Run("Submit", func(t *testing.T) {
		assert.True(t, policy.CanSubmit(student))
		assert.False(t, policy.CanSubmit(faculty))
		assert.False(t, policy.CanSubmit(admin))
	})

	t.Run("Verify", func(t *testing.T) {
		assert.True(t, policy.CanVerify(faculty))
		assert.True(t, policy.CanVerify(admin))
		assert.False(t, policy.CanVerify(student))
		assert.False(t, policy.CanVerify(retired))
	})

	t.Run("ViewAchievement", func(t *testing.T) {
		assert.True(t, policy.CanViewAchievement(student, 1))
		assert.False(t, policy.CanViewAchievement(other, 1))
		assert.True(t, policy.CanViewAchievement(faculty, 1))
	})

	t.Run("EditAchievement", func(t *testing.T) {
		assert.True(t, policy.CanEditAchievement(student, 1))
		assert.False(t, policy.CanEditAchievement(other, 1))
		assert.False(t, policy.CanEditAchievement(admin, 1))
	})

	t.Run("DeleteAchievement", func(t *testing.T) {
		assert.True(t, policy.CanDeleteAchievement(student, 1))
		assert.True(t, policy.CanDeleteAchievement(admin, 1))
		assert.False(t, policy.CanDeleteAchievement(faculty, 1))
		assert.False(t, policy.CanDeleteAchievement(other, 1))
	})

	t.Run("AdminOnly", func(t *testing.T) {
		assert.True(t, policy.CanManageUsers(admin))
		assert.False(t, policy.CanManageUsers(faculty))
		assert.True(t, policy.CanViewReports(faculty))
		assert.True(t, policy.CanPublishNotice(faculty))
		assert.False(t, policy.CanPublishNotice(student))
	})

	t.Run("ManageEvents", func(t *testing.T) {
		assert.True(t, policy.CanManageEvents(faculty))
		assert.True(t, policy.CanManageEvents(admin))
		assert.False(t, policy.CanManageEvents(student))
		assert.False(t, policy.CanManageEvents(retired))
	})
}
