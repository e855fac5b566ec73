package main

import "github.com/forPelevin/fallacycheck/internal/cli"

func main() {
	cli.Main()
}
