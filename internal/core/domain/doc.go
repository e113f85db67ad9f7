// Package domain contains the core business entities and rules.
//
// This package has no dependencies on other internal packages.
// It defines what the system IS, independent of how documents are
// stored, how text is extracted, or how requests arrive.
package domain
