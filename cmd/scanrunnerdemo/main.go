// Command scanrunnerdemo wires an in-memory Host SDK, the CSP example
// checks, and the scan runner together and runs one scan end to end,
// logging each finding and check failure as it is emitted and printing
// the final findings per target. It exists to
// demonstrate the engine's wiring, not as a product CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/waftester/scanengine/pkg/checkregistry"
	"github.com/waftester/scanengine/pkg/checks/csp"
	"github.com/waftester/scanengine/pkg/scancheck"
	"github.com/waftester/scanengine/pkg/scanevents"
	"github.com/waftester/scanengine/pkg/scanrunner"
)

func main() {
	runFlags := flag.NewFlagSet("run", flag.ExitOnError)
	aggressivity := runFlags.Int("aggressivity", 1, "configured aggressivity tier")
	verbose := runFlags.Bool("verbose", false, "emit debug-level logging")
	runFlags.Parse(os.Args[1:])

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	sdk := newMemSDK()
	sdk.add(
		memRequest{id: "req-missing-csp", host: "example.test", path: "/", method: "GET"},
		memResponse{status: 200, headers: map[string][]string{"content-type": {"text/html; charset=utf-8"}}},
	)
	sdk.add(
		memRequest{id: "req-wildcard-script", host: "example.test", path: "/app", method: "GET"},
		memResponse{status: 200, headers: map[string][]string{
			"content-type":             {"text/html; charset=utf-8"},
			"content-security-policy": {"default-src 'self'; script-src *"},
		}},
	)

	registry := checkregistry.New()
	registry.Register(csp.NotEnforced)
	registry.Register(csp.Clickjacking)
	registry.Register(csp.UntrustedScript)

	runner := scanrunner.New(registry, sdk)
	runner.On(scanevents.TypeFinding, func(e scanevents.Event) {
		f := e.(scanevents.Finding)
		logger.Info("finding", "check", f.CheckID, "target", f.TargetRequestID, "severity", f.Finding.Severity, "name", f.Finding.Name)
	})
	runner.On(scanevents.TypeCheckFailed, func(e scanevents.Event) {
		f := e.(scanevents.CheckFailed)
		logger.Warn("check failed", "check", f.CheckID, "target", f.TargetRequestID, "code", f.ErrorCode, "message", f.ErrorMessage)
	})

	config := scancheck.DefaultScanConfig()
	config.Aggressivity = *aggressivity

	result, err := runner.Run(context.Background(), config, []string{"req-missing-csp", "req-wildcard-script"})
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan failed:", err)
		os.Exit(1)
	}

	for _, target := range result.Targets {
		fmt.Printf("target %s: %d finding(s)\n", target.TargetRequestID, len(target.Findings))
		for _, f := range target.Findings {
			fmt.Printf("  [%s] %s\n", f.Severity, f.Name)
		}
	}
}
