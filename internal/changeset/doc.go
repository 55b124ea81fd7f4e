// Package changeset decides which feature files a run looks at.
//
// In CI the change set is the list of files a pull request adds or
// modifies, read from the GitHub API. Locally it is every file under the
// work dir matching the include globs.
package changeset
