// Leasecheck analyzes a residential tenancy agreement from the command line.
//
// Usage:
//
//	# Analyze with Gemini, falling back to keyword matching
//	leasecheck analyze lease.txt --pretty
//
//	# Analyze offline with the keyword pattern library only
//	leasecheck analyze lease.txt --keywords-only
//
//	# Read the contract from stdin
//	cat lease.txt | leasecheck analyze -
//
//	# Show the clause taxonomy or the keyword pattern library
//	leasecheck taxonomy
//	leasecheck patterns
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
