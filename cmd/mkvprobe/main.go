// Package main is the entry point for mkvprobe, a small command-line
// client exercising the demuxer engine against a real file.
package main

import (
	"os"

	"github.com/limefrogyank/mkvdemux/cmd/mkvprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
