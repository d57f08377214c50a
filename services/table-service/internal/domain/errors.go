package domain

import "errors"

var (
	ErrTableNotFound = errors.New("table not found")
	ErrClubNotFound  = errors.New("club not found")
)
