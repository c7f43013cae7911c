package csp

import (
	"context"
	"strings"

	"github.com/waftester/scanengine/pkg/scancheck"
)

// notEnforcedOutput is what csp-not-enforced hands downstream checks via
// DependencyOutput.
type notEnforcedOutput struct {
	Enforced   bool
	Directives directives
}

// NotEnforced flags HTML responses served without a
// Content-Security-Policy header at all.
var NotEnforced = scancheck.CheckDefinition{
	Metadata: scancheck.CheckMetadata{
		ID:          "csp-not-enforced",
		Name:        "CSP not enforced",
		Description: "HTML response served without a Content-Security-Policy header.",
		Type:        scancheck.TypePassive,
		Tags:        []string{"csp", "headers"},
		Severities:  []scancheck.Severity{scancheck.SeverityHigh},
	},
	Create: func(rc scancheck.RuntimeContext) scancheck.CheckTask {
		steps := scancheck.NewStepBuilder().
			Step("inspect", func(ctx context.Context, rc scancheck.RuntimeContext, state any) (scancheck.StepResult, error) {
				exch, ok, err := rc.SDK().Get(ctx, rc.Target().RequestID)
				if err != nil {
					return scancheck.StepResult{}, err
				}
				if !ok || exch.Response == nil {
					return scancheck.Done(nil, nil, notEnforcedOutput{}), nil
				}

				contentType, _ := exch.Response.Header("content-type")
				if !headerContains(contentType, "text/html") {
					return scancheck.Done(nil, nil, notEnforcedOutput{}), nil
				}

				values, present := exch.Response.Header("content-security-policy")
				if !present || len(values) == 0 {
					finding := scancheck.Finding{
						Name:        "CSP not enforced",
						Description: "The response does not set a Content-Security-Policy header, leaving the page without script-injection mitigation.",
						Severity:    scancheck.SeverityHigh,
						Correlation: scancheck.Correlation{RequestID: rc.Target().RequestID},
					}
					return scancheck.Done(nil, []scancheck.Finding{finding}, notEnforcedOutput{Enforced: false}), nil
				}

				return scancheck.Done(nil, nil, notEnforcedOutput{Enforced: true, Directives: parse(values[0])}), nil
			}).
			Build()
		return scancheck.NewStepMachineTask(rc, steps, "inspect", nil)
	},
}

func headerContains(values []string, want string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), want) {
			return true
		}
	}
	return false
}
