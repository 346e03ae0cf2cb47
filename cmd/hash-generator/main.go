// Command hash-generator produces a bcrypt hash for a password, for seeding
// development accounts directly in the database.
//
// Usage:
//
//	hash-generator -password "correct horse battery" [-cost 12]
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	password := flag.String("password", "", "password to hash (required)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "error: -password is required")
		flag.Usage()
		os.Exit(1)
	}

	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		fmt.Fprintf(os.Stderr, "error: cost must be between %d and %d\n", bcrypt.MinCost, bcrypt.MaxCost)
		os.Exit(1)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to generate hash: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(hash))
}
