package main

import (
	"fmt"
	"os"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "invoicex: [%s] %v\n", common.ErrorCode(err), err)
		os.Exit(1)
	}
}
