// Command taskmaster manages the dependency graph of a Task Master tasks file.
package main

import "github.com/papapumpkin/taskmaster/cmd"

func main() {
	cmd.Execute()
}
