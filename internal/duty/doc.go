// Package duty reconciles on-call duty assignments with their weekly schedule.
//
// One run is strictly sequential:
//
//	Authenticator -> Resolver -> Updater
//
// The Authenticator exchanges the service-account credentials for a bearer
// token. The Resolver lists every schedule window active for the current
// weekday and minute, following the listing's "next" links, and partitions
// the assignments into those whose start boundary is now (turn on) and those
// whose end boundary is now (turn off). The Updater issues one bulk update per
// non-empty set.
//
// Nothing is retried and nothing is escalated: each stage reports an explicit
// outcome in the RunReport, and the caller decides what to do with it.
package duty
