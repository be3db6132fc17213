// cmd/phylorun/main.go
package main

import (
	"phylorun/internal/app"
	"phylorun/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
