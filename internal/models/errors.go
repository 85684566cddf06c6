package models

import "errors"

// Error kinds returned by the store. Match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrTagNotFound      = errors.New("tag not found")
	ErrSameTag          = errors.New("source and target tag are the same")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIO               = errors.New("i/o error")
	ErrCorruptMetadata  = errors.New("corrupt metadata")
	ErrInvalidName      = errors.New("invalid name")
)
