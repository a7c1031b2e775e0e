// Package bulk implements the bulk voter registration grid.
//
// The package has no transport or storage dependencies. It is organised
// around four pieces:
//
//   - [Row]: one candidate registration entry and its pure transitions
//     ([Row.SetField], [Row.Clear]).
//   - [Grid]: the fixed-size, ordered set of rows, activation rules, the
//     deactivation confirmation step and aggregate [Stats].
//   - [Validate] and [FindDuplicateIdentifiers]: per-row field rules and the
//     cross-row identifier uniqueness check.
//   - [Submitter]: the sequential submission run producing a [Report].
//
// # Error classes
//
// Field validation errors live on the row ([Row.Errors]). Duplicate
// identifiers abort a run before any registrar call ([StatusDuplicates]).
// Registrar rejections and faults are recorded per row in [Report.Failures]
// and never stop the remaining rows.
package bulk
