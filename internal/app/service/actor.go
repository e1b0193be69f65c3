package service

import "github.com/BytePitApp/bytepit-api/internal/domain/model"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// CanManage reports whether the actor owns a resource or is an admin.
func (a Actor) CanManage(ownerID string) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
