package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// Notes:
// - White-box testing (package config).
// - Uses t.TempDir() + t.Setenv("XDG_CONFIG_HOME") for I/O isolation.
// - Tests using t.Setenv are NOT parallel (incompatible with t.Parallel).

// writeConfigFile creates a config.yaml in the avremote config directory under dir.
func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "avremote")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(EnvConfigFile, "")
	for _, key := range keys {
		// viper ignores empty environment values.
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, "-", "_")), "")
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.ToleranceS != DefaultToleranceS {
		t.Errorf("ToleranceS = %d, want %d", cfg.ToleranceS, DefaultToleranceS)
	}
	if cfg.Tolerance() != 30*time.Second {
		t.Errorf("Tolerance() = %v, want 30s", cfg.Tolerance())
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.DevicePort != DefaultDevicePort {
		t.Errorf("DevicePort = %d, want %d", cfg.DevicePort, DefaultDevicePort)
	}
	if cfg.StreamTimeout != DefaultStreamTimeout {
		t.Errorf("StreamTimeout = %v, want %v", cfg.StreamTimeout, DefaultStreamTimeout)
	}
	if cfg.IncludeFloor {
		t.Error("IncludeFloor should default to false")
	}
}

func TestLoad_FileThenEnvThenFlag(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "prefix: RoomA\ntolerance-s: 10\ntimeout: 5s\ndevice-port: 4000\n")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Prefix != "RoomA" || cfg.ToleranceS != 10 || cfg.Timeout != 5*time.Second || cfg.DevicePort != 4000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}

	t.Setenv("AVREMOTE_TOLERANCE_S", "45")
	cfg, err = Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ToleranceS != 45 {
		t.Errorf("env override: ToleranceS = %d, want 45", cfg.ToleranceS)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.IntP(KeyTolerance, "t", DefaultToleranceS, "")
	flags.StringP(KeyPrefix, "p", "", "")
	if err := flags.Parse([]string{"-t", "5"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err = Load(flags)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.ToleranceS != 5 {
		t.Errorf("flag override: ToleranceS = %d, want 5", cfg.ToleranceS)
	}
	if cfg.Prefix != "RoomA" {
		t.Errorf("unset flag should not override file: Prefix = %q, want RoomA", cfg.Prefix)
	}
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("include-floor: true\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.IncludeFloor {
		t.Error("IncludeFloor = false, want true from explicit file")
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	isolate(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(nil); err == nil {
		t.Error("Load() with missing explicit file should fail")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := isolate(t)
	writeConfigFile(t, dir, "tolerance-s: -1\nlog-level: loud\n")

	_, err := Load(nil)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
	for _, want := range []string{"tolerance-s", "log-level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should name %s", err, want)
		}
	}
}

func TestValidate_StructTags(t *testing.T) {
	t.Parallel()

	type opts struct {
		DeviceIP string `flag:"device-ip" validate:"required,ip|hostname"`
		Command  string `flag:"command" validate:"required,oneof=start stop"`
	}

	tests := []struct {
		name    string
		in      opts
		wantErr string
	}{
		{name: "valid ip", in: opts{DeviceIP: "192.168.1.10", Command: "start"}},
		{name: "valid hostname", in: opts{DeviceIP: "recorder.local", Command: "stop"}},
		{name: "missing ip", in: opts{Command: "start"}, wantErr: "device-ip is required"},
		{name: "bad command", in: opts{DeviceIP: "10.0.0.1", Command: "jump"}, wantErr: "command must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(tt.in)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error should wrap ErrInvalid")
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/logs/a.log"); got != filepath.Join(home, "logs", "a.log") {
		t.Errorf("ExpandPath(~/logs/a.log) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q, want unchanged", got)
	}
}
