package main

import "github.com/cockroachdb/tblverify/cmd"

func main() {
	cmd.Execute()
}
