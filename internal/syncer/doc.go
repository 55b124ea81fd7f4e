// Package syncer turns parsed requirements into tracker items and writes the
// returned ids back into the feature files they came from.
//
// Within one document every requirement is decided, created and annotated
// strictly in order: each annotation shifts the line positions the next one
// relies on, so a create is always awaited before its annotation runs.
// Failures stay as narrow as possible. A failed create affects only its own
// requirement and an unreadable file affects only itself.
package syncer
