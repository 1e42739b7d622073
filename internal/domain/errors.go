package domain

import "errors"

var (
	// ErrUpstreamUnavailable signals a model provider call that failed after
	// exhausting the bounded retry policy.
	ErrUpstreamUnavailable = errors.New("upstream model unavailable")
	// ErrMalformedResponse signals structured model output that did not parse
	// into the expected shape.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrImageFetch signals a failed thumbnail download. Candidate-scoped,
	// never aborts a whole request.
	ErrImageFetch = errors.New("image fetch failed")
	// ErrRetrieval signals a catalog similarity-search failure.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrMapping signals a catalog row that did not conform to the Product shape.
	ErrMapping = errors.New("row mapping failed")
)
