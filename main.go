package main

import "github.com/TuanBC/credit-scoring-onchain/internal/cli"

func main() {
	cli.Execute()
}
