// Command hash-password prints the stored form of a password, for seeding
// identities (admins in particular) directly in the database.
package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/vyayamzone/vyayam-api/internal/utils"
)

func main() {
	var password string
	switch {
	case len(os.Args) >= 2:
		password = os.Args[1]
	case term.IsTerminal(int(os.Stdin.Fd())):
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		password = string(b)
	default:
		fmt.Println("Usage: hash-password [password]")
		os.Exit(1)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
