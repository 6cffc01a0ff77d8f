package main

import "github.com/openvoxel/go-voxtree/cmd/voxtree/cmd"

func main() {
	cmd.Execute()
}
