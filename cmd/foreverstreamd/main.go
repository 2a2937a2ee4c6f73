// Command foreverstreamd runs the transcoding daemon without the CLI wrapper.
// It reads the config named by FOREVERSTREAM_CONFIG, or the default location.
package main

import (
	"context"
	"log"
	"os"
	"strings"

	"foreverstream/internal/config"
	"foreverstream/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load(configPathFromEnv())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("daemon: %v", err)
	}
}

func configPathFromEnv() string {
	return strings.TrimSpace(os.Getenv("FOREVERSTREAM_CONFIG"))
}
