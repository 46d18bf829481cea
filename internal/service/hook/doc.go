// Package hook runs operator-provided executables at fixed points of the
// update lifecycle.
//
// A hook receives no arguments and one guaranteed environment variable,
// CONFIG_PATH. A missing hook file means there is nothing to do. Exit status
// zero is success; anything else, including a failure to start the process,
// is reported as a FailureError carrying the captured standard error.
package hook
