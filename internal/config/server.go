// Package config covers bootstrap/CLI (C8): positional argument validation
// for both programs, plus an optional TOML overlay of operational defaults
// that sits strictly underneath the mandatory CLI contract.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Exit codes fixed by the external interface contract.
const (
	ExitServerCmdline         = 19
	ExitServerPortUnavailable = 10
	ExitServerScratchFile     = 18
	ExitServerClassifierLoad  = 14

	ExitClientCmdline = 16
)

const maxConnectionLimit = 10000

// ServerArgs is the validated positional triplet `connectionlimit maxsize
// [portnumber]`.
type ServerArgs struct {
	ConnectionLimit uint32 // 0 disables admission limiting
	MaxImageBytes   uint32 // 0 input is promoted to math.MaxUint32 here
	Port            string // "" or "0" requests an ephemeral port
}

// ParseServerArgs validates args against the server's positional contract.
func ParseServerArgs(args []string) (ServerArgs, error) {
	if len(args) < 2 || len(args) > 3 {
		return ServerArgs{}, errors.New("usage: facedetectd connectionlimit maxsize [portnumber]")
	}

	limit, err := parseDecimalUint32(args[0])
	if err != nil {
		return ServerArgs{}, fmt.Errorf("invalid connectionlimit: %w", err)
	}
	if limit > maxConnectionLimit {
		return ServerArgs{}, fmt.Errorf("connectionlimit must be <= %d", maxConnectionLimit)
	}

	size, err := parseDecimalUint32(args[1])
	if err != nil {
		return ServerArgs{}, fmt.Errorf("invalid maxsize: %w", err)
	}
	if size == 0 {
		size = math.MaxUint32
	}

	port := "0"
	if len(args) == 3 {
		if args[2] != "" {
			if _, err := parseDecimalUint32(args[2]); err != nil {
				return ServerArgs{}, fmt.Errorf("invalid portnumber: %w", err)
			}
			port = args[2]
		}
	}

	return ServerArgs{ConnectionLimit: limit, MaxImageBytes: size, Port: port}, nil
}

func parseDecimalUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New("not a non-negative decimal integer")
	}
	return uint32(n), nil
}
