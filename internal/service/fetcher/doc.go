// Package fetcher downloads the remote configuration document.
//
// Each Fetch is a single bounded GET: no retries, a fixed 30 second timeout,
// and idle connections closed afterwards so nothing outlives the cycle.
package fetcher
