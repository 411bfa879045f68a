// Package common holds sentinel errors and constants shared by the sync
// client and the sync server. Match them with errors.Is.
package common

import "errors"

// AccessTokenHeaderName is the gRPC metadata key carrying the access token.
const AccessTokenHeaderName = "access_token"

// TimestampField is the document field holding the last writer's timestamp.
const TimestampField = "timestamp"

// DeletedField marks a soft-deleted document.
const DeletedField = "deleted"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrInvalidInput = errors.New("invalid input")
)
