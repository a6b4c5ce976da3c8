package main

import "github.com/prasisiri/pycode-cronjob/cmd"

func main() {
	cmd.Execute()
}
