package main

import "github.com/zoutigo/smc-kpi/internal/cli"

var Version = "dev"

func main() {
	cli.Execute(Version)
}
