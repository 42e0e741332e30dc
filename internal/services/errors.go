package services

import "errors"

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrRateLimited       = errors.New("rate limited")
)

const (
	RoleVolunteer = "volunteer"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

func canMessage(role string) bool {
	switch role {
	case RoleVolunteer, RoleOrganizer, RoleAdmin:
		return true
	default:
		return false
	}
}
