// Package main is the entry point for catctl, the catalog-sync CLI client.
package main

import (
	"github.com/avelichko/catalog-sync/cmd/catctl/cmd"
)

func main() {
	cmd.Execute()
}
