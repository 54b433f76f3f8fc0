// Command trecat inspects NITF Tagged Record Extensions.
package main

import "github.com/beetlebugorg/nitf/cmd/trecat/cmd"

func main() {
	cmd.Execute()
}
