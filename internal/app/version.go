package app

const ServiceName = "achievement-service"

// Set via -ldflags at build time:
//
//	go build -ldflags="-X 'achievement-service/internal/app.Version=1.0.0'"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
