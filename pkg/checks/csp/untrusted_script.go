package csp

import (
	"context"

	"github.com/waftester/scanengine/pkg/scancheck"
)

// UntrustedScript flags a Content-Security-Policy whose script-src (or,
// absent that, default-src) directive allows any origin via a bare "*"
// value, which defeats CSP's script-injection protection entirely.
var UntrustedScript = scancheck.CheckDefinition{
	Metadata: scancheck.CheckMetadata{
		ID:          "csp-untrusted-script",
		Name:        "CSP allows untrusted script sources",
		Description: "Content-Security-Policy script-src permits any origin.",
		Type:        scancheck.TypePassive,
		Tags:        []string{"csp", "script-injection"},
		Severities:  []scancheck.Severity{scancheck.SeverityCritical},
	},
	Create: func(rc scancheck.RuntimeContext) scancheck.CheckTask {
		steps := scancheck.NewStepBuilder().
			Step("inspect", func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
				exch, ok, err := rc.SDK().Get(ctx, rc.Target().RequestID)
				if err != nil {
					return scancheck.StepResult{}, err
				}
				if !ok || exch.Response == nil {
					return scancheck.Done(nil, nil, nil), nil
				}

				values, present := exch.Response.Header("content-security-policy")
				if !present || len(values) == 0 {
					return scancheck.Done(nil, nil, nil), nil
				}

				dirs := parse(values[0])
				directive := "script-src"
				if !dirs.has(directive) {
					directive = "default-src"
				}
				if !dirs.containsValue(directive, "*") {
					return scancheck.Done(nil, nil, nil), nil
				}

				finding := scancheck.Finding{
					Name:        "CSP allows untrusted script sources",
					Description: "The " + directive + " directive permits scripts from any origin (\"*\"), effectively disabling CSP's script-injection mitigation.",
					Severity:    scancheck.SeverityCritical,
					Correlation: scancheck.Correlation{RequestID: rc.Target().RequestID},
				}
				return scancheck.Done(nil, []scancheck.Finding{finding}, nil), nil
			}).
			Build()
		return scancheck.NewStepMachineTask(rc, steps, "inspect", nil)
	},
}
