package keyfs

import "fmt"

const (
	ErrBucketAlreadyExists ErrorCode = "BucketAlreadyExists"

	// Raised when attempting to delete a bucket that still contains
	// entries.
	ErrBucketNotEmpty ErrorCode = "BucketNotEmpty"

	// See BucketNotFound() for a helper function for this error:
	ErrNoSuchBucket ErrorCode = "NoSuchBucket"

	// See EntryNotFound() for a helper function for this error:
	ErrNoSuchEntry ErrorCode = "NoSuchEntry"

	// Raised when a path fails IsValidName.
	ErrInvalidPath ErrorCode = "InvalidPath"

	// Raised when a file entry stands where a directory is required, for
	// example in the middle of a path being created.
	ErrNotADirectory ErrorCode = "NotADirectory"

	// Raised when removing a directory that still has children without
	// asking for a recursive delete.
	ErrDirectoryNotEmpty ErrorCode = "DirectoryNotEmpty"

	ErrEntryAlreadyExists ErrorCode = "EntryAlreadyExists"

	ErrNotImplemented ErrorCode = "NotImplemented"
	ErrInternal       ErrorCode = "InternalError"
)

// Error is the error surface of this package: every error returned by a
// Namespace or Backend can be reduced to an ErrorCode. The pure key path
// functions never return errors; invalid input degrades to empty or
// absent results as documented on each function.
type Error interface {
	error
	ErrorCode() ErrorCode
}

type ErrorCode string

func (e ErrorCode) ErrorCode() ErrorCode { return e }
func (e ErrorCode) Error() string        { return string(e) }

type resourceError struct {
	code     ErrorCode
	resource string
}

var _ Error = &resourceError{}

func (e *resourceError) ErrorCode() ErrorCode { return e.code }

func (e *resourceError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.resource)
}

// ResourceError attaches the name of the bucket, key or path the error is
// about to an ErrorCode.
func ResourceError(code ErrorCode, resource string) error {
	return &resourceError{code: code, resource: resource}
}

func BucketNotFound(bucket string) error { return ResourceError(ErrNoSuchBucket, bucket) }
func EntryNotFound(key string) error     { return ResourceError(ErrNoSuchEntry, key) }

func HasErrorCode(err error, code ErrorCode) bool {
	kerr, ok := err.(interface{ ErrorCode() ErrorCode })
	if !ok {
		return false
	}
	return kerr.ErrorCode() == code
}

func IsNotExist(err error) bool {
	return HasErrorCode(err, ErrNoSuchBucket) || HasErrorCode(err, ErrNoSuchEntry)
}

func IsAlreadyExists(err error) bool {
	return HasErrorCode(err, ErrBucketAlreadyExists) || HasErrorCode(err, ErrEntryAlreadyExists)
}
