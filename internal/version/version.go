package version

// Version is the current version of roomcall.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/jheehg/webrtc-learning/internal/version.Version=v1.0.0'"
var Version = "dev"
