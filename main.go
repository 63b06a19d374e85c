package main

import (
	"github.com/graham33/ifit-strava/cmd"
)

func main() {
	cmd.Execute()
}
