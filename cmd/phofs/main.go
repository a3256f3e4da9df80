// Command phofs runs restriction-checked filesystem queries from the shell.
//
// Failures are printed to stderr as JSON with the error code, message and
// context, and the process exits with status 1.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Capmega/phoundation-sub014/errors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		data, jerr := json.Marshal(errors.ToJSON(err))
		if jerr != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, string(data))
		}
		os.Exit(1)
	}
}
