package main

import "github.com/theirongolddev/paycheck/cmd"

func main() {
	cmd.Execute()
}
