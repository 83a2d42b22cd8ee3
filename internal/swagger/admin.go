package swagger

import "github.com/antonio-alexander/go-employee-facade/internal/data"

// swagger:route DELETE /cache Cache ClearCache
// Clears the service side cache.
//
// responses:
//   204: NoContent

// swagger:route GET /cache/counters Cache ReadCacheCounters
// Reads the cache hit and miss counters.
//
// responses:
//   200: CacheCountersResponseOk

// swagger:route DELETE /cache/counters Cache ClearCacheCounters
// Resets the cache hit and miss counters.
//
// responses:
//   204: NoContent

// swagger:route GET /timers Timers ReadTimers
// Reads the total and average time spent per endpoint.
//
// responses:
//   200: TimersResponseOk

// swagger:route DELETE /timers Timers ClearTimers
// Resets the endpoint timers.
//
// responses:
//   204: NoContent

// swagger:response NoContent
type NoContent struct{}

// swagger:response CacheCountersResponseOk
type CacheCountersResponseOk struct {
	// in:body
	CacheCounters data.CacheCounters
}

// swagger:response TimersResponseOk
type TimersResponseOk struct {
	// in:body
	Timers data.Timers
}
