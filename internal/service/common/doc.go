// Package common holds helpers shared by the updater services.
//
// It detects the current system actor (hostname/username) so the startup
// log line identifies which container or host manages the configuration.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
