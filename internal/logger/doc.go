// Package logger wraps zap for the updater:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled shortcuts (Infof, ErrorKV, etc.) that read the logger from a context.
//
// Every component receives a context and logs through it, so a cycle's
// iteration number and the component name travel with each line.
package logger
