package main

import "staking-sync/internal/cli"

func main() {
	cli.Execute()
}
