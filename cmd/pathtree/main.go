// Command pathtree manages materialized-path trees from the command line.
package main

import "github.com/mesh-intelligence/pathtree/internal/cli"

func main() {
	cli.Execute()
}
