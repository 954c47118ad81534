// Package scaffold creates new projects from the variant template
// repositories and describes the variants on offer.
package scaffold
