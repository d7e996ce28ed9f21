// Package main is the entry point for the smtp-post relay.
package main

import (
	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().Execute()
	cobra.CheckErr(err)
}
