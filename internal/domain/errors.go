package domain

import "errors"

// Invite lifecycle errors
var (
	ErrInviteNotFound        = errors.New("invite not found")
	ErrInviteExpired         = errors.New("invite expired")
	ErrInviteAlreadyUsed     = errors.New("invite already used")
	ErrDuplicateActiveInvite = errors.New("an active invite of this kind already exists")
)

// Membership errors
var (
	ErrMemberNotFound  = errors.New("member not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// Platform and storage errors
var (
	// ErrPermissionDenied means the bot lacks admin rights in the managed
	// group. Surfaced to the operator as a configuration problem, never
	// treated as fatal.
	ErrPermissionDenied = errors.New("bot lacks required group permissions")

	// ErrStorageConflict means a conditional write lost a race against a
	// concurrent writer.
	ErrStorageConflict = errors.New("concurrent write lost the race")
)
