package main

import "mspro-labs/treedb/cmd"

func main() {
	cmd.Execute()
}
