// Command readerdigest は読書記録のWebフロントエンドを起動する。
//
//	readerdigest [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/readerdigest/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "readerdigest: %v\n", err)
		os.Exit(1)
	}
}
