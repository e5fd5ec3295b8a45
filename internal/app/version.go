package app

// Build metadata, overridden via -ldflags at release time.
var (
	Name      = "holarchy-browser-service"
	Version   = "dev"
	GitTag    = ""
	BuildTime = ""
)
