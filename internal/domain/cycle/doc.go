// Package cycle contains the result type of one update cycle.
//
// Outcome is Unchanged, Updated or Failed; Result pairs it with the failure
// reason so the scheduler can log it and decide whether to run the error hook.
package cycle
