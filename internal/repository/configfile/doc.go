// Package configfile manages the local configuration file and its single
// backup generation.
//
// FileRepository decides whether fetched bytes differ from the stored copy,
// keeps a byte-exact ".bak" of the previous contents, replaces the file
// atomically and restores it from the backup on request.
package configfile
