// Package codebeamer creates requirement items in a Codebeamer tracker
// through its REST API.
//
// Only item creation is supported. Each call is rate limited. A create is
// retried with exponential backoff only when it certainly did not happen: a
// 429 response, or a failed dial or name lookup. Any other failure, gateway
// errors and timeouts included, is returned as-is since the tracker may
// already hold the item and a retry would duplicate it.
package codebeamer
