// Command modvault-index builds a portable search index archive from a
// package source tree.
package main

import (
	"flag"
	"log/slog"
	"os"

	"modvault/internal/index"
)

func main() {
	input := flag.String("input", "", "package source directory to index")
	output := flag.String("output", "index.zip", "path of the index archive to write")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *input == "" {
		slog.Error("missing required flag -input")
		flag.Usage()
		os.Exit(2)
	}

	if err := index.Build(*input, *output); err != nil {
		slog.Error("index build failed", "input", *input, "error", err)
		os.Exit(1)
	}
	slog.Info("index built", "input", *input, "output", *output)
}
