package main

import (
	"os"

	// Root certificates for scratch containers.
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/dshills/danger/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
