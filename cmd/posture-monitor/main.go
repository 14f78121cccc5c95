package main

import "github.com/oshokin/posture-alarm/cmd/posture-monitor/cmd"

func main() {
	cmd.Execute()
}
