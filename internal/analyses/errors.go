package analyses

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrMalformedVerdict is returned when the relevance answer matches neither
	// accepted shape.
	ErrMalformedVerdict = errors.New("malformed relevance verdict")
	// ErrMissingArtifactURL marks candidates without a document link.
	ErrMissingArtifactURL = errors.New("missing artifact url")
	ErrInvalidRequest     = errors.New("invalid analysis request")
)

const (
	ErrorCodeValidation          = "validation_error"
	ErrorCodeNoData              = "no_data"
	ErrorCodeRegistryTimeout     = "registry_timeout"
	ErrorCodeRegistryUnavailable = "registry_unavailable"
	ErrorCodeAborted             = "aborted"
	ErrorCodeInternal            = "internal_error"
)

// Per-item failure kinds, used in logs and metric labels.
const (
	KindDownloadFailed     = "download_failed"
	KindDownloadTimeout    = "download_timeout"
	KindNoExtractableText  = "no_extractable_text"
	KindMissingArtifactURL = "missing_artifact_url"
	KindAllProvidersFailed = "all_providers_failed"
	KindVerdictMalformed   = "verdict_malformed"
	KindInternal           = "internal"
)
