package main

import "github.com/oshokin/alarm-dispatch/cmd/alarm-dispatch/cmd"

func main() {
	cmd.Execute()
}
