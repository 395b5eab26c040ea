package main

import (
	"github.com/jheehg/webrtc-learning/internal/commands"
	"github.com/jheehg/webrtc-learning/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	commands.Execute()
}
