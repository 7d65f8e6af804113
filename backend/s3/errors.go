package s3

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	ErrInvalidConfig  = errors.New("s3: invalid configuration")
	ErrNotFound       = errors.New("s3: document not found")
	ErrAccessDenied   = errors.New("s3: access denied")
	ErrDownloadFailed = errors.New("s3: download failed")
	ErrUploadFailed   = errors.New("s3: upload failed")
)

// wrapS3Error maps S3 API errors onto the sentinels above, fallback otherwise.
// The original error is formatted with %v: callers match sentinels, not AWS types.
func wrapS3Error(err error, fallback error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %v", ErrAccessDenied, err)
		}
	}

	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %v", fallback, err)
}
