// Package search turns a member search condition into where-clause
// predicates over the members (m) and teams (t) join. Conditions, ByBuilder
// and RawQuery render the same predicate in different styles and select the
// same rows.
package search
