package main

import "github.com/oshokin/posture-alarm/cmd/posture-watch/cmd"

func main() {
	cmd.Execute()
}
