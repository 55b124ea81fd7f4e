// Package requirement extracts tagged requirement blocks from feature files
// and writes remote tracker links back into the text.
//
// # Input format
//
// A requirement starts at an identity tag and runs until the next identity
// tag or the end of the document:
//
//	@ADS-123
//	@Safety
//	Feature: Door interlock
//	As an operator I want the door to lock during operation
//	@CB-142600
//	Scenario: Door locks on start
//	  Given the door is closed
//	  When the cycle starts
//	  Then the door locks
//
// Recognised lines (after trimming surrounding whitespace, case-sensitive):
//   - @ADS-<id>  identity tag, starts a new Requirement
//   - @CB-<id>   remote link, records the tracker item id
//   - @<other>   opaque tag, collected into Requirement.Tags
//   - Feature:   sets the title (last one wins)
//   - Scenario: / Scenario Outline:  opens a scenario block
//
// Everything else is description text until the first scenario header and
// scenario text afterwards.
//
// # Purity
//
// Parse and Annotate perform no I/O and keep no state between calls, so the
// same text always yields the same result.
package requirement
