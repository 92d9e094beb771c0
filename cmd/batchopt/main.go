package main

import "github.com/dbsmedya/batchopt/cmd/batchopt/cmd"

func main() {
	cmd.Execute()
}
