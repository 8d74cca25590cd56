// Copyright © 2024 The rebug authors

package main

import "github.com/luthersystems/rebug/cmd"

func main() {
	cmd.Execute()
}
