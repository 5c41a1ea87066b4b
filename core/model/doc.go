// Package model defines the roster, fleet and mission records shared by the
// matching, conflict and reassignment engines.
package model
