package csp

import (
	"context"

	"github.com/waftester/scanengine/pkg/scancheck"
)

// Clickjacking depends on NotEnforced: if CSP is missing entirely the
// clickjacking surface is already covered by csp-not-enforced, so this
// check records an empty-findings completion rather than double
// reporting. When CSP is present but declares no frame-ancestors
// directive, the page can still be framed by an attacker-controlled
// origin.
var Clickjacking = scancheck.CheckDefinition{
	Metadata: scancheck.CheckMetadata{
		ID:          "csp-clickjacking",
		Name:        "CSP missing frame-ancestors",
		Description: "Content-Security-Policy is present but does not restrict framing via frame-ancestors.",
		Type:        scancheck.TypePassive,
		Tags:        []string{"csp", "clickjacking"},
		Severities:  []scancheck.Severity{scancheck.SeverityMedium},
		DependsOn:   []string{"csp-not-enforced"},
	},
	Create: func(rc scancheck.RuntimeContext) scancheck.CheckTask {
		steps := scancheck.NewStepBuilder().
			Step("inspect", func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
				dep, ok := rc.DependencyOutput("csp-not-enforced")
				if !ok {
					return scancheck.Done(nil, nil, nil), nil
				}
				out, ok := dep.(notEnforcedOutput)
				if !ok || !out.Enforced {
					return scancheck.Done(nil, nil, nil), nil
				}

				if out.Directives.has("frame-ancestors") {
					return scancheck.Done(nil, nil, nil), nil
				}

				finding := scancheck.Finding{
					Name:        "Missing frame-ancestors directive",
					Description: "Content-Security-Policy is enforced but does not declare frame-ancestors, so the page may still be embedded in a hostile frame.",
					Severity:    scancheck.SeverityMedium,
					Correlation: scancheck.Correlation{RequestID: rc.Target().RequestID},
				}
				return scancheck.Done(nil, []scancheck.Finding{finding}, nil), nil
			}).
			Build()
		return scancheck.NewStepMachineTask(rc, steps, "inspect", nil)
	},
}
