// Package rest implements the shared paged-fetch client used by every
// vendor connector: bounded retry with exponential backoff, adaptive
// two-layer rate limiting, and pluggable continuation-token strategies
// covering the pagination conventions seen across vendor APIs.
package rest
