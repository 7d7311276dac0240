// Reddit film communities - discussion collector and network builder.
//
// The collector pulls posts, comments, and user profiles from film
// subreddits, derives a weighted user interaction network from the reply
// structure, and keeps everything as versionable flat-file datasets plus a
// searchable local archive.
package main

import (
	"fmt"
	"os"

	"github.com/pavelihno/reddit-film-communities/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
