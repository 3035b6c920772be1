package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/cocon"
	"github.com/alnah/avremote/internal/config"
	"github.com/alnah/avremote/internal/mux"
	"github.com/alnah/avremote/internal/streaming"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	LoadFunc func(flags *pflag.FlagSet) (config.Config, error)

	mu        sync.Mutex
	loadCalls int
}

func (m *mockConfigLoader) Load(flags *pflag.FlagSet) (config.Config, error) {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()

	if m.LoadFunc != nil {
		return m.LoadFunc(flags)
	}
	return testConfig(), nil
}

func (m *mockConfigLoader) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// ---------------------------------------------------------------------------
// Mock DeviceFactory + RecorderDevice
// ---------------------------------------------------------------------------

type mockDeviceFactory struct {
	device *mockDevice

	mu      sync.Mutex
	hosts   []string
	configs []config.Config
}

func (m *mockDeviceFactory) NewDevice(host string, cfg config.Config, _ *zap.Logger) RecorderDevice {
	m.mu.Lock()
	m.hosts = append(m.hosts, host)
	m.configs = append(m.configs, cfg)
	m.mu.Unlock()
	return m.device
}

func (m *mockDeviceFactory) Configs() []config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]config.Config(nil), m.configs...)
}

func (m *mockDeviceFactory) Hosts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hosts...)
}

// mockDevice serves a file listing and bodies keyed by URL.
type mockDevice struct {
	StartState cocon.State
	StopState  cocon.State
	State      cocon.State
	Files      []cocon.FileInfo
	Bodies     map[string]string
	Err        error

	// OnOpen runs before a download starts.
	OnOpen func(url string) error

	mu    sync.Mutex
	calls []string
}

func (m *mockDevice) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockDevice) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockDevice) StartRecording(context.Context) (cocon.State, error) {
	m.record("start")
	return m.StartState, m.Err
}

func (m *mockDevice) StopRecording(context.Context) (cocon.State, error) {
	m.record("stop")
	return m.StopState, m.Err
}

func (m *mockDevice) RecordingState(context.Context) (cocon.State, error) {
	m.record("state")
	return m.State, m.Err
}

func (m *mockDevice) RecordingFiles(context.Context) ([]cocon.FileInfo, error) {
	m.record("files")
	return m.Files, m.Err
}

func (m *mockDevice) FileURL(name string) (string, error) {
	return "http://10.0.0.2/" + strings.TrimPrefix(name, "/"), nil
}

func (m *mockDevice) Open(_ context.Context, url string) (io.ReadCloser, error) {
	m.record("open " + url)
	if m.OnOpen != nil {
		if err := m.OnOpen(url); err != nil {
			return nil, err
		}
	}
	body, ok := m.Bodies[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// ---------------------------------------------------------------------------
// Mock StreamDialer + StreamController
// ---------------------------------------------------------------------------

type mockStreamDialer struct {
	controller *mockStreamController
	DialErr    error

	mu       sync.Mutex
	addrs    []string
	timeouts []time.Duration
}

func (m *mockStreamDialer) Dial(_ context.Context, addr string, timeout time.Duration, _ *zap.Logger) (StreamController, error) {
	m.mu.Lock()
	m.addrs = append(m.addrs, addr)
	m.timeouts = append(m.timeouts, timeout)
	m.mu.Unlock()

	if m.DialErr != nil {
		return nil, m.DialErr
	}
	return m.controller, nil
}

func (m *mockStreamDialer) Addrs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.addrs...)
}

func (m *mockStreamDialer) Timeouts() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.timeouts...)
}

type mockStreamController struct {
	Streaming bool
	Outcome   streaming.Outcome
	Err       error

	mu     sync.Mutex
	closed int
}

func (m *mockStreamController) IsStreaming(context.Context) (bool, error) {
	return m.Streaming, m.Err
}

func (m *mockStreamController) Start(context.Context) (streaming.Outcome, error) {
	return m.Outcome, m.Err
}

func (m *mockStreamController) Stop(context.Context) (streaming.Outcome, error) {
	return m.Outcome, m.Err
}

func (m *mockStreamController) StreamURL() string {
	return "rtsp://10.0.0.5/stream"
}

func (m *mockStreamController) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockStreamController) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(ctx context.Context, configured string) (string, error)

	mu           sync.Mutex
	resolveCalls int
	checked      []string
}

func (m *mockFFmpegResolver) Resolve(ctx context.Context, configured string) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, configured)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) CheckVersion(_ context.Context, ffmpegPath string, _ *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, ffmpegPath)
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock MuxerFactory + MediaMuxer
// ---------------------------------------------------------------------------

type mockMuxerFactory struct {
	muxer *mockMuxer

	mu          sync.Mutex
	ffmpegPaths []string
}

func (m *mockMuxerFactory) NewMuxer(ffmpegPath string, _ *zap.Logger) MediaMuxer {
	m.mu.Lock()
	m.ffmpegPaths = append(m.ffmpegPaths, ffmpegPath)
	m.mu.Unlock()
	return m.muxer
}

type mockMuxer struct {
	PrepareFunc func(ctx context.Context, folder string) (mux.Plan, error)
	RunFunc     func(ctx context.Context, p mux.Plan) error

	mu   sync.Mutex
	runs []mux.Plan
}

func (m *mockMuxer) Prepare(ctx context.Context, folder string) (mux.Plan, error) {
	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, folder)
	}
	video, audio, err := mux.Discover(folder)
	if err != nil {
		return mux.Plan{}, err
	}
	return mux.NewPlan(video, audio, nil), nil
}

func (m *mockMuxer) Run(ctx context.Context, p mux.Plan) error {
	m.mu.Lock()
	m.runs = append(m.runs, p)
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, p)
	}
	return nil
}

func (m *mockMuxer) Runs() []mux.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mux.Plan(nil), m.runs...)
}

// Compile-time interface verification.
var (
	_ ConfigLoader     = (*mockConfigLoader)(nil)
	_ DeviceFactory    = (*mockDeviceFactory)(nil)
	_ RecorderDevice   = (*mockDevice)(nil)
	_ StreamDialer     = (*mockStreamDialer)(nil)
	_ StreamController = (*mockStreamController)(nil)
	_ FFmpegResolver   = (*mockFFmpegResolver)(nil)
	_ MuxerFactory     = (*mockMuxerFactory)(nil)
	_ MediaMuxer       = (*mockMuxer)(nil)
)
