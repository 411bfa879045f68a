// Package uploads persists the upload queue's waiting list and its dead letters.
//
// Only the serializable part of an upload is stored; callbacks never reach the
// database, so everything read back is a recovered upload.
package uploads
