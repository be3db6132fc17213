package version

// Version is overridden at build time with
// -ldflags "-X phylorun/internal/version.Version=..."
var Version = "0.1.0-dev"
