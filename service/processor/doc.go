// Package processor hosts the workers that consume queued dispatch requests
// and hand them to the scheduler. Requests are served highest priority first.
package processor
