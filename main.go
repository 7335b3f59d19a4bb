package main

import "github.com/PairScope/pairscope/cmd"

func main() {
	cmd.Execute()
}
