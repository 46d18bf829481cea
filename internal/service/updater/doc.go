// Package updater keeps a local configuration file in sync with a remote one.
//
// Cycle performs one fetch, size check, change detection, backup, atomic
// write and post-update hook, restoring the backup when the hook rejects the
// new file. Scheduler runs cycles back to back with a fixed pause between
// them and runs the error hook after each failed cycle. Run wires both
// together from the startup configuration.
package updater
