package main

import "github.com/emmt/xen/cmd/xenctl/cmd"

func main() {
	cmd.Execute()
}
