// Command faceclient sends one detect or replace request to facedetectd and
// writes back the image or error it receives.
package main

import (
	"fmt"
	"os"

	"github.com/danmuck/faceguard/internal/config"
	"github.com/danmuck/faceguard/internal/faceclient"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := config.ParseClientArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitClientCmdline
	}

	return faceclient.Run(faceclient.Options{
		Port:        args.Port,
		DetectFile:  args.DetectFile,
		ReplaceFile: args.ReplaceFile,
		OutputFile:  args.OutputFile,
	}, os.Stdin, os.Stdout, os.Stderr)
}
