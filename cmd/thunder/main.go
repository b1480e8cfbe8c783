// Command thunder drives the auth API from a terminal. Credentials are kept
// in the store selected with --store and survive between invocations.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("thunder: ")
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	opts = Options{}
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "thunder"
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			return nil
		}
		return err
	}
	return nil
}
