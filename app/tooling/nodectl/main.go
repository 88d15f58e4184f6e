// This program drives a node through its public API.
package main

import "github.com/ardanlabs/powchain/app/tooling/nodectl/cmd"

func main() {
	cmd.Execute()
}
