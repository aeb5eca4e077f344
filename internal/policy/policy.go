// Package policy holds the capability checks shared by every service.
// Services ask these functions instead of comparing roles inline.
package policy

import "achievement-service/internal/user"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID     int64
	Role       user.Role
	Department user.Department
	Email      string
	Active     bool
}

func (a Actor) IsStaff() bool {
	return a.Role == user.RoleAdmin || a.Role == user.RoleFaculty
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

// CanSubmit reports whether the actor may create achievements. Only students
// submit claims.
func CanSubmit(a Actor) bool {
	return a.Active && a.Role == user.RoleStudent
}

// CanVerify reports whether the actor may approve or reject achievements.
func CanVerify(a Actor) bool {
	return a.Active && a.IsStaff()
}

func CanViewAchievement(a Actor, ownerID int64) bool {
	return a.UserID == ownerID || a.IsStaff()
}

// CanEditAchievement is owner-only. Staff moderate through verification.
func CanEditAchievement(a Actor, ownerID int64) bool {
	return a.UserID == ownerID
}

// CanDeleteAchievement allows the owner and admins. The approved-lock for
// owners is enforced by the achievement service.
func CanDeleteAchievement(a Actor, ownerID int64) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

func CanViewReports(a Actor) bool {
	return a.Active && a.IsStaff()
}

func CanManageUsers(a Actor) bool {
	return a.Active && a.IsAdmin()
}

func CanPublishNotice(a Actor) bool {
	return a.Active && a.IsStaff()
}

// CanManageEvents covers creating events. Editing and removal are further
// limited to admins and the organiser by the event service.
func CanManageEvents(a Actor) bool {
	return a.Active && a.IsStaff()
}
