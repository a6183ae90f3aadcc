package config

import "testing"

func TestParseClientArgsPortOnly(t *testing.T) {
	args, err := ParseClientArgs([]string{"9999"})
	if err != nil {
		t.Fatalf("ParseClientArgs: %v", err)
	}
	if args.Port != "9999" || args.DetectFile != "" || args.ReplaceFile != "" || args.OutputFile != "" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestParseClientArgsAllFlags(t *testing.T) {
	args, err := ParseClientArgs([]string{
		"9999",
		"--replacefile", "r.jpg",
		"--outputfilename", "o.jpg",
		"--detectfile", "d.jpg",
	})
	if err != nil {
		t.Fatalf("ParseClientArgs: %v", err)
	}
	if args.ReplaceFile != "r.jpg" || args.OutputFile != "o.jpg" || args.DetectFile != "d.jpg" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestParseClientArgsNonNumericPortIsNotACmdlineError(t *testing.T) {
	// A bad port is only discovered later, as a dial failure, not here.
	args, err := ParseClientArgs([]string{"not-a-port"})
	if err != nil {
		t.Fatalf("ParseClientArgs: %v", err)
	}
	if args.Port != "not-a-port" {
		t.Fatalf("Port = %q, want %q", args.Port, "not-a-port")
	}
}

func TestParseClientArgsDuplicateFlag(t *testing.T) {
	_, err := ParseClientArgs([]string{"9999", "--detectfile", "a.jpg", "--detectfile", "b.jpg"})
	if err == nil {
		t.Fatal("expected error for duplicate flag")
	}
}

func TestParseClientArgsEmptyFilename(t *testing.T) {
	_, err := ParseClientArgs([]string{"9999", "--detectfile", ""})
	if err == nil {
		t.Fatal("expected error for empty filename")
	}
}

func TestParseClientArgsMissingPort(t *testing.T) {
	if _, err := ParseClientArgs([]string{}); err == nil {
		t.Fatal("expected error for missing portnum")
	}
}

func TestParseClientArgsUnknownFlag(t *testing.T) {
	if _, err := ParseClientArgs([]string{"9999", "--bogus", "x"}); err == nil {
		t.Fatal("expected error for unknown flag")
	}
}
