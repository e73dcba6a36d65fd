package nss3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func TestAPIErrorCode(t *testing.T) {
	for idx, tc := range []struct {
		err  error
		code string
	}{
		{apiError("NoSuchBucket"), "NoSuchBucket"},
		{fmt.Errorf("operation failed: %w", apiError("NoSuchKey")), "NoSuchKey"},
		{errors.New("plain"), ""},
		{nil, ""},
	} {
		if code := apiErrorCode(tc.err); code != tc.code {
			t.Fatal("unexpected code at index", idx, ":", code)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	for idx, tc := range []struct {
		err          error
		notFound     bool
		noSuchBucket bool
	}{
		{apiError("NotFound"), true, false},
		{apiError("NoSuchKey"), true, false},
		{apiError("NoSuchBucket"), false, true},
		{apiError("BucketNotEmpty"), false, false},
		{fmt.Errorf("head: %w", apiError("NotFound")), true, false},
		{errors.New("plain"), false, false},
		{nil, false, false},
	} {
		if got := isNotFound(tc.err); got != tc.notFound {
			t.Fatal("isNotFound mismatch at index", idx)
		}
		if got := isNoSuchBucket(tc.err); got != tc.noSuchBucket {
			t.Fatal("isNoSuchBucket mismatch at index", idx)
		}
	}
}
