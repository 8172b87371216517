package cmd

import (
	"fmt"
	"os"
)

// used to patch over calls to os.Exit() during test
var osExit = os.Exit

func wrapFatalln(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "shelf: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "shelf: %s\n", msg)
	}
	osExit(1)
}

func wrapFatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "shelf: "+format+"\n", args...)
	osExit(1)
}
