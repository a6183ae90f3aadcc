package config

import (
	"github.com/BurntSushi/toml"
)

// OperationalDefaults is the optional ambient overlay: paths and settings
// that never appear on the mandatory positional command line, layered
// underneath it. CLI positionals and flags always win; this only ever
// supplies values nothing else set.
type OperationalDefaults struct {
	FaceCascadePath    string `toml:"face_cascade_path"`
	EyeCascadePath     string `toml:"eye_cascade_path"`
	ScratchFilePath    string `toml:"scratch_file_path"`
	PrefixResponsePath string `toml:"prefix_response_path"`
	LogLevel           string `toml:"log_level"`
	MetricsListenAddr  string `toml:"metrics_listen_addr"`
}

// DefaultOperational reproduces the fixed paths the original implementation
// hard-codes, so behaviour is unchanged when no overlay file is given.
func DefaultOperational() OperationalDefaults {
	return OperationalDefaults{
		FaceCascadePath:    "/local/courses/csse2310/resources/a4/haarcascade_frontalface_alt2.xml",
		EyeCascadePath:     "/local/courses/csse2310/resources/a4/haarcascade_eye_tree_eyeglasses.xml",
		ScratchFilePath:    "/tmp/imagefile.jpg",
		PrefixResponsePath: "/local/courses/csse2310/resources/a4/responsefile",
		LogLevel:           "info",
		MetricsListenAddr:  "",
	}
}

// LoadOperational decodes path over top of DefaultOperational. An empty
// path is not an error; it simply means "use the built-in defaults". Only
// keys actually present in the file are reported back via the returned
// toml.MetaData, so callers can log what was overridden without guessing.
func LoadOperational(path string) (OperationalDefaults, toml.MetaData, error) {
	defaults := DefaultOperational()
	if path == "" {
		return defaults, toml.MetaData{}, nil
	}
	meta, err := toml.DecodeFile(path, &defaults)
	if err != nil {
		return OperationalDefaults{}, toml.MetaData{}, err
	}
	return defaults, meta, nil
}
