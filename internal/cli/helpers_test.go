package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alnah/avremote/internal/cocon"
	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/recording"
)

// ---------------------------------------------------------------------------
// syncBuffer - thread-safe bytes.Buffer for concurrent test output
// ---------------------------------------------------------------------------

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Compile-time check that syncBuffer implements io.Writer.
var _ io.Writer = (*syncBuffer)(nil)

// ---------------------------------------------------------------------------
// testMocks - convenience struct for grouping all mocks
// ---------------------------------------------------------------------------

type testMocks struct {
	configLoader   *mockConfigLoader
	devices        *mockDeviceFactory
	device         *mockDevice
	dialer         *mockStreamDialer
	camera         *mockStreamController
	ffmpegResolver *mockFFmpegResolver
	muxers         *mockMuxerFactory
	muxer          *mockMuxer
	stdout         *syncBuffer
	stderr         *syncBuffer
}

// testEnv creates a test Env with all dependencies mocked.
// Returns the Env and the mocks for assertions.
func testEnv() (*Env, *testMocks) {
	m := &testMocks{
		configLoader:   &mockConfigLoader{},
		device:         &mockDevice{},
		camera:         &mockStreamController{},
		ffmpegResolver: &mockFFmpegResolver{},
		muxer:          &mockMuxer{},
		stdout:         &syncBuffer{},
		stderr:         &syncBuffer{},
	}
	m.devices = &mockDeviceFactory{device: m.device}
	m.dialer = &mockStreamDialer{controller: m.camera}
	m.muxers = &mockMuxerFactory{muxer: m.muxer}

	env := NewEnv(
		WithStdout(m.stdout),
		WithStderr(m.stderr),
		WithConfigLoader(m.configLoader),
		WithDeviceFactory(m.devices),
		WithStreamDialer(m.dialer),
		WithFFmpegResolver(m.ffmpegResolver),
		WithMuxerFactory(m.muxers),
	)
	return env, m
}

// testConfig mirrors the config defaults with the RoomA prefix.
func testConfig() config.Config {
	return config.Config{
		Prefix:          "RoomA",
		ToleranceS:      config.DefaultToleranceS,
		Timeout:         config.DefaultTimeout,
		DownloadTimeout: config.DefaultDownloadTimeout,
		DevicePort:      config.DefaultDevicePort,
		StreamTimeout:   config.DefaultStreamTimeout,
		LogLevel:        "debug",
	}
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// runRecorderCmd runs recorderctl with args.
func runRecorderCmd(t *testing.T, env *Env, args ...string) error {
	t.Helper()
	cmd := RecorderCmd(env)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// runStreamCmd runs streamctl with args.
func runStreamCmd(t *testing.T, env *Env, args ...string) error {
	t.Helper()
	cmd := StreamCmd(env)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

const (
	frFile    = "RoomA_2020-06-17_15h22m56s_01-FR_01.mp3"
	enFile    = "RoomA_2020-06-17_15h22m56s_02-EN_01.mp3"
	floorFile = "RoomA_2020-06-17_15h22m56s_Floor.mp3"
	oldFile   = "RoomA_2020-06-16_09h00m00s_01-FR_01.mp3"
)

// mediaFolder creates a media folder holding metadata.json and a video.
func mediaFolder(t *testing.T, creation string) string {
	t.Helper()
	dir := t.TempDir()
	meta := `{"creation": "` + creation + `"}`
	if err := os.WriteFile(filepath.Join(dir, recording.MetadataFile), []byte(meta), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "recording.mp4"), []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return dir
}

// scenarioDevice is a stopped recorder holding the RoomA session files.
func scenarioDevice(d *mockDevice) {
	d.StopState = cocon.StateIdle
	d.Files = []cocon.FileInfo{
		{Name: "audio/internal/" + oldFile},
		{Name: "audio/internal/" + frFile},
		{Name: "audio/internal/" + floorFile},
		{Name: "audio/internal/" + enFile},
	}
	d.Bodies = map[string]string{
		"http://10.0.0.2/audio/internal/" + frFile:    "french channel",
		"http://10.0.0.2/audio/internal/" + enFile:    "english channel",
		"http://10.0.0.2/audio/internal/" + floorFile: "floor",
	}
}

// lockPath returns the lock marker path inside folder.
func lockPath(folder string) string {
	return filepath.Join(folder, recording.LockFile)
}

// fileExists reports whether path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
