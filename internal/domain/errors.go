package domain

import "errors"

var (
	// ErrInvalidInput signals a caller-fixable request problem (empty query, bad payload).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable signals a transport-level failure reaching an AI gateway.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrUpstreamRejected signals a non-success status from an AI gateway.
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrMalformedResponse signals a gateway response missing the expected payload.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrVectorDimMismatch signals an embedding of the wrong dimensionality.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrIndexProvisioning signals a failure while ensuring a vector index.
	ErrIndexProvisioning = errors.New("index provisioning failed")
	// ErrProvisioningTimeout signals the index never became queryable within the bound.
	ErrProvisioningTimeout = errors.New("index provisioning timed out")
	// ErrSummarization signals a generation failure at a hard-fail call site.
	ErrSummarization = errors.New("summarization failed")
)
