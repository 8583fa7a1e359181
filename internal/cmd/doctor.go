package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tutorlink/tutorlink/internal/ailink"
	"github.com/tutorlink/tutorlink/internal/ailink/prompt"
	"github.com/tutorlink/tutorlink/internal/config"
	"github.com/tutorlink/tutorlink/internal/learning"
	"github.com/tutorlink/tutorlink/internal/observability"
)

var doctorPing bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Check the environment, configuration, store, prompts and provider routing.

No network calls are made unless --ping is given, which sends one short
probe prompt to the resolved provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := runDoctor(cmd.Context())
		report.log()
		if !report.ok() {
			return fmt.Errorf("%d of %d checks failed", report.failed(), len(report.checks))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "send a probe prompt to the resolved provider")
}

type checkState int

const (
	checkPass checkState = iota
	checkWarn
	checkFail
)

type doctorCheck struct {
	name   string
	state  checkState
	detail string
}

type doctorReport struct {
	checks []doctorCheck
}

func (r *doctorReport) add(name string, state checkState, format string, args ...any) {
	r.checks = append(r.checks, doctorCheck{name: name, state: state, detail: fmt.Sprintf(format, args...)})
}

func (r *doctorReport) failed() int {
	n := 0
	for _, c := range r.checks {
		if c.state == checkFail {
			n++
		}
	}
	return n
}

func (r *doctorReport) ok() bool { return r.failed() == 0 }

func (r *doctorReport) log() {
	logger := observability.CLILogger
	logger.Info("=== " + config.AppName + " doctor ===")
	logger.Info("")
	total := len(r.checks)
	for i, c := range r.checks {
		line := fmt.Sprintf("[%d/%d] %s... %s", i+1, total, c.name, c.detail)
		switch c.state {
		case checkPass:
			logger.Info(line)
		case checkWarn:
			logger.Warn(line)
		default:
			logger.Error(line)
		}
	}
	logger.Info("")
	if r.ok() {
		logger.Info("All checks passed.")
	} else {
		logger.Warn("Some checks failed. Review the output above for details.")
	}
}

func runDoctor(ctx context.Context) *doctorReport {
	report := &doctorReport{}

	report.add("Go version", checkPass, "%s (%s/%s)", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	ssot := crucible.GetVersion()
	if ssot.Gofulmen != "" && ssot.Crucible != "" {
		report.add("Gofulmen/Crucible", checkPass, "gofulmen %s, crucible %s", ssot.Gofulmen, ssot.Crucible)
	} else {
		report.add("Gofulmen/Crucible", checkWarn, "version metadata unavailable")
	}

	if dir := config.DefaultConfigDir(); dir != "" {
		report.add("Config directory", checkPass, "%s", dir)
	} else {
		report.add("Config directory", checkWarn, "cannot resolve XDG config directory")
	}

	cfg, err := loadConfig()
	if err != nil {
		report.add("Configuration", checkFail, "%v", err)
		return report
	}
	report.add("Configuration", checkPass, "%d rpm, %d workers, %s timeout",
		cfg.Engine.RequestsPerMinute, cfg.Engine.MaxWorkers, cfg.Engine.Timeout)

	checkStore(report, cfg)
	checkCache(report, cfg)
	checkPrompts(report, cfg)
	resolved := checkProvider(report, cfg)

	if doctorPing && resolved {
		checkPing(ctx, report, cfg)
	}
	return report
}

func checkStore(report *doctorReport, cfg *config.Config) {
	if strings.TrimSpace(cfg.Store.URL) != "" {
		report.add("Database", checkPass, "%s (remote)", cfg.Store.URL)
		return
	}
	absPath, _ := filepath.Abs(cfg.Store.Path)
	info, err := os.Stat(absPath)
	switch {
	case err == nil:
		report.add("Database", checkPass, "%s (%d bytes)", absPath, info.Size())
	case os.IsNotExist(err):
		report.add("Database", checkWarn, "%s (not created yet)", absPath)
	default:
		report.add("Database", checkFail, "%s: %v", absPath, err)
	}
}

func checkCache(report *doctorReport, cfg *config.Config) {
	driver := cacheLabel(strings.ToLower(strings.TrimSpace(cfg.Cache.Driver)))
	switch driver {
	case config.CacheDriverRedis:
		report.add("Result cache", checkPass, "redis at %s (ttl %s)", cfg.Cache.Redis.Addr, cfg.Cache.TTL)
	case config.CacheDriverStore:
		report.add("Result cache", checkPass, "store (ttl %s)", cfg.Cache.TTL)
	default:
		report.add("Result cache", checkPass, "disabled")
	}
}

func checkPrompts(report *doctorReport, cfg *config.Config) {
	registry, err := prompt.LoadRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		report.add("Prompts", checkFail, "%v", err)
		return
	}
	var missing []string
	for _, slug := range learning.Slugs() {
		if _, err := registry.Get(slug); err != nil {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		report.add("Prompts", checkFail, "missing: %s", strings.Join(missing, ", "))
		return
	}
	source := "built-in"
	if dir := strings.TrimSpace(cfg.AILink.PromptsDir); dir != "" {
		source = "built-in + " + dir
	}
	report.add("Prompts", checkPass, "%d loaded (%s)", len(registry.List()), source)
}

func checkProvider(report *doctorReport, cfg *config.Config) bool {
	if !cfg.AILink.HasProviders() {
		report.add("AI provider", checkWarn, "not configured (set ailink.providers in the config file)")
		return false
	}
	resolved, err := ailink.NewRegistry(cfg.AILink).Resolve("", "")
	if err != nil {
		report.add("AI provider", checkFail, "%v", err)
		return false
	}
	if strings.TrimSpace(resolved.Credential.APIKey) == "" {
		report.add("AI provider", checkWarn, "%s/%s has no API key", resolved.ProviderID, resolved.Model)
		return true
	}
	report.add("AI provider", checkPass, "%s (%s, model %s)", resolved.ProviderID, resolved.Provider.AIProvider, resolved.Model)
	return true
}

func checkPing(ctx context.Context, report *doctorReport, cfg *config.Config) {
	timeout := cfg.Engine.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	adapter := ailink.NewAdapter(cfg.AILink, ailink.WithLogger(observability.CLILogger))
	raw, err := adapter.Send(pingCtx, `Reply with the JSON object {"summary": "ok"}.`)
	if err != nil {
		observability.CLILogger.Debug("Provider ping failed", zap.Error(err))
		report.add("Provider ping", checkFail, "%v", err)
		return
	}
	report.add("Provider ping", checkPass, "%d bytes in %s", len(raw), time.Since(started).Round(time.Millisecond))
}
