// Package source fetches decision grid documents from a file, an HTTP
// endpoint, an S3 object or a Git repository.
//
// Remote sources remember the last revision they served and return
// ErrNotModified when nothing changed, so a polling manager only re-parses
// real edits.
package source
