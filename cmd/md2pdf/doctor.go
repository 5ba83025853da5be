package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	flag "github.com/spf13/pflag"

	md2pdf "github.com/alnah/go-md2pdf-live"
	"github.com/alnah/go-md2pdf-live/client"
	"github.com/alnah/go-md2pdf-live/internal/config"
	"github.com/alnah/go-md2pdf-live/internal/fileutil"
)

const (
	doctorServerTimeout  = 5 * time.Second
	doctorVersionTimeout = 10 * time.Second
)

// Report statuses, worst last.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult is the report printed by doctor, as text or JSON.
type doctorResult struct {
	Status   string        `json:"status"`
	Browser  browserCheck  `json:"browser"`
	Renderer rendererCheck `json:"renderer"`
	Storage  storageCheck  `json:"storage"`
	Platform platformCheck `json:"platform"`
	Server   *serverCheck  `json:"server,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

type browserCheck struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"` // ROD_BROWSER_BIN, CHROME_BIN, config or lookup
	Version string `json:"version,omitempty"`
}

// rendererCheck echoes the renderer settings serve would start with.
type rendererCheck struct {
	Engine                string `json:"engine"`
	Sandbox               bool   `json:"sandbox"`
	GOMAXPROCS            int    `json:"gomaxprocs"`
	MaxConcurrent         int    `json:"max_concurrent"`
	TimeoutSeconds        int    `json:"timeout_seconds"`
	PreviewTimeoutSeconds int    `json:"preview_timeout_seconds"`
}

type storageCheck struct {
	Backend string `json:"backend"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

type platformCheck struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	TempWritable  bool   `json:"temp_writable"`
}

type serverCheck struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

func (r *doctorResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// runDoctorCmd executes the doctor command and returns an exit code:
// 0 when rendering can work (warnings included), 1 when a check failed,
// 2 for bad flags or configuration.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	flags, err := parseDoctorFlags(args, env.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		fmt.Fprintf(env.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	cfg, err := loadConfig(flags.config, env.Getenv)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	initCLILogger(commonFlags{}, cfg)

	result := runDoctor(ctx, cfg, env.Getenv, flags.server)

	if flags.json {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor runs every check against the effective configuration.
func runDoctor(ctx context.Context, cfg *config.Config, getenv func(string) string, serverURL string) *doctorResult {
	result := &doctorResult{
		Renderer: rendererCheck{
			Engine:                cfg.Renderer.Engine,
			Sandbox:               !cfg.Renderer.NoSandbox,
			GOMAXPROCS:            runtime.GOMAXPROCS(0),
			MaxConcurrent:         md2pdf.ResolvePoolSize(cfg.Renderer.MaxConcurrent),
			TimeoutSeconds:        cfg.Renderer.TimeoutSeconds,
			PreviewTimeoutSeconds: cfg.Renderer.PreviewTimeoutSeconds,
		},
		Platform: platformCheck{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}

	checkBrowser(ctx, result, cfg, getenv)
	checkPlatform(result, getenv)
	checkStorage(ctx, result, cfg)
	if serverURL != "" {
		checkServer(ctx, result, serverURL)
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = statusErrors
	case len(result.Warnings) > 0:
		result.Status = statusWarnings
	default:
		result.Status = statusReady
	}
	return result
}

// browserSource names where cfg.Renderer.BrowserBin came from, mirroring
// the precedence of config.ApplyEnv.
func browserSource(cfg *config.Config, getenv func(string) string) string {
	switch {
	case getenv("ROD_BROWSER_BIN") != "":
		return "ROD_BROWSER_BIN"
	case getenv("CHROME_BIN") != "":
		return "CHROME_BIN"
	case cfg.Renderer.BrowserBin != "":
		return "config"
	}
	return ""
}

func checkBrowser(ctx context.Context, result *doctorResult, cfg *config.Config, getenv func(string) string) {
	path, source := cfg.Renderer.BrowserBin, browserSource(cfg, getenv)
	if path == "" {
		var found bool
		if path, found = launcher.LookPath(); !found {
			result.fail("Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
		source = "lookup"
	}

	if !fileutil.FileExists(path) {
		result.fail("Browser not found at %s (from %s)", path, source)
		return
	}
	result.Browser = browserCheck{Found: true, Path: path, Source: source}

	vctx, cancel := context.WithTimeout(ctx, doctorVersionTimeout)
	defer cancel()
	out, err := exec.CommandContext(vctx, path, "--version").Output() // #nosec G204 -- browser path from env, config or lookup
	if err != nil {
		result.warn("Could not get browser version: %v", err)
		return
	}
	result.Browser.Version = strings.TrimSpace(string(out))
}

func checkPlatform(result *doctorResult, getenv func(string) string) {
	p := &result.Platform
	p.Container, p.ContainerHint = isContainer(getenv)
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			p.CI = true
			break
		}
	}
	if (p.Container || p.CI) && result.Renderer.Sandbox {
		result.warn("Container/CI detected but the browser sandbox is on. Set ROD_NO_SANDBOX=1")
	}

	// Every render writes its HTML document to the temp dir first.
	_, cleanup, err := fileutil.WriteTempFile("doctor", "html")
	if err != nil {
		result.fail("Temp directory not writable: %s", os.TempDir())
		return
	}
	cleanup()
	p.TempWritable = true
}

// isContainer reports whether the process seems to run in a container, and
// which signal said so.
func isContainer(getenv func(string) string) (bool, string) {
	switch {
	case getenv("MD2PDF_CONTAINER") == "1":
		return true, "MD2PDF_CONTAINER=1"
	case fileutil.FileExists("/.dockerenv"):
		return true, "/.dockerenv"
	case getenv("container") != "":
		return true, "container=" + getenv("container")
	case getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkStorage opens the configured upload store the way serve does.
func checkStorage(ctx context.Context, result *doctorResult, cfg *config.Config) {
	result.Storage.Backend = cfg.Storage.Backend

	b, err := openBackend(ctx, cfg)
	if err != nil {
		result.Storage.Error = err.Error()
		result.fail("Upload store %s: %v", cfg.Storage.Backend, err)
		return
	}
	defer func() { _ = b.close() }()

	if result.Storage.Ready = b.ready(); !result.Storage.Ready {
		result.Storage.Error = "not reachable"
		result.warn("Upload store %s is not reachable; serve will report not ready", cfg.Storage.Backend)
	}
}

// checkServer calls /health on a running service.
func checkServer(ctx context.Context, result *doctorResult, url string) {
	result.Server = &serverCheck{URL: url}

	c, err := client.New(url)
	if err != nil {
		result.Server.Error = err.Error()
		result.fail("Invalid server URL: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, doctorServerTimeout)
	defer cancel()
	if err := c.Health(ctx); err != nil {
		result.Server.Error = err.Error()
		result.fail("Server %s not reachable: %v", url, err)
		return
	}
	result.Server.Reachable = true
}

// printDoctorResult writes the human-readable report.
func printDoctorResult(w io.Writer, r *doctorResult) {
	ok := func(format string, args ...any) { fmt.Fprintf(w, "  [OK] "+format+"\n", args...) }
	bad := func(format string, args ...any) { fmt.Fprintf(w, "  [ERROR] "+format+"\n", args...) }

	fmt.Fprintf(w, "md2pdf doctor\n\n")

	fmt.Fprintln(w, "Browser")
	if r.Browser.Found {
		ok("Found at %s (%s)", r.Browser.Path, r.Browser.Source)
		if r.Browser.Version != "" {
			ok("Version: %s", r.Browser.Version)
		}
	} else {
		bad("Not found")
	}

	fmt.Fprintln(w, "\nRenderer")
	ok("Engine: %s", r.Renderer.Engine)
	if r.Renderer.Sandbox {
		ok("Sandbox: enabled")
	} else {
		ok("Sandbox: disabled")
	}
	ok("Concurrent renders: %d (GOMAXPROCS %d)", r.Renderer.MaxConcurrent, r.Renderer.GOMAXPROCS)
	ok("Timeouts: %ds materialize, %ds preview", r.Renderer.TimeoutSeconds, r.Renderer.PreviewTimeoutSeconds)

	fmt.Fprintln(w, "\nStorage")
	if r.Storage.Ready {
		ok("Backend %s: ready", r.Storage.Backend)
	} else {
		bad("Backend %s: %s", r.Storage.Backend, r.Storage.Error)
	}

	fmt.Fprintln(w, "\nPlatform")
	ok("%s/%s", r.Platform.OS, r.Platform.Arch)
	if r.Platform.Container {
		ok("Container: detected (%s)", r.Platform.ContainerHint)
	}
	if r.Platform.CI {
		ok("CI: detected")
	}
	if r.Platform.TempWritable {
		ok("Temp directory: writable")
	} else {
		bad("Temp directory: not writable")
	}

	if r.Server != nil {
		fmt.Fprintln(w, "\nServer")
		if r.Server.Reachable {
			ok("%s: healthy", r.Server.URL)
		} else {
			bad("%s: unreachable", r.Server.URL)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, msg := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", msg)
		}
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, msg := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", msg)
		}
	}

	fmt.Fprintln(w)
	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to render")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	default:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
