// Package core is the application layer of the registration service.
//
// It owns the in-memory grid sessions and connects them to everything
// outside the bulk package: the database registrar, leader reference data,
// voter lookup, auditing and metrics. It can be used by web handlers, the
// CLI, or tests without modification.
//
// # Grid Sessions
//
// Each grid lives on the server and belongs to the staff member who created
// it. A grid id that is unknown, expired, or owned by someone else answers
// [ErrGridNotFound]. The janitor drops grids that sat idle longer than
// [GridSettings.IdleTTL].
//
// # Submission
//
// [Service.Submit] takes a slot from the [SubmissionLimiter] and hands the
// grid to a bulk.Submitter. Every registrar outcome is written to the audit
// log as it happens, and the run summary is written once it ends.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]. Each
// category has a code staff can quote to support:
//
//   - DB001-DB006: Database errors (duplicates, constraints, connections)
//   - GRID001-GRID006: Grid state errors
//   - VAL001-VAL003: Validation and lookup errors
//   - AUTH001-AUTH003: Authentication errors
//
// # Audit Logging
//
// Audit entries carry a severity:
//
//   - Low: Grid creation, leader refreshes, logins
//   - Medium: Registrations, rejections, cleared rows, submission runs
//   - High: Registration faults, failed logins
package core
