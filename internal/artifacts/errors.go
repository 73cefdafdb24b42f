package artifacts

import "errors"

var (
	ErrDownloadFailed    = errors.New("artifact download failed")
	ErrDownloadTimeout   = errors.New("artifact download timed out")
	ErrNoExtractableText = errors.New("artifact has no extractable text")
)
