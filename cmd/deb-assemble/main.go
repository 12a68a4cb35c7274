// Package main provides the deb-assemble command-line tool.
package main

import "github.com/debassemble/debassemble/cmd/deb-assemble/command"

func main() {
	command.Execute()
}
