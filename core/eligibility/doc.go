// Package eligibility holds the pure pass/fail predicates shared by the
// matching and conflict engines.
package eligibility
