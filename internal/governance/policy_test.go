package governance

import (
	"context"
	"testing"
)

func TestDefaultPolicyEngine_Evaluate(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	ctx := context.Background()

	// Test Allow (Default)
	res1, err := engine.Evaluate(ctx, Request{Tool: "search", Arguments: `{"query":"psi drift"}`})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res1.Effect != EffectAllow {
		t.Errorf("Expected EffectAllow, got %s", res1.Effect)
	}

	// Test Deny
	engine.DenyTool("schedule_analysis")
	res2, err := engine.Evaluate(ctx, Request{Tool: "schedule_analysis"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if res2.Effect != EffectDeny {
		t.Errorf("Expected EffectDeny, got %s", res2.Effect)
	}
}

func TestDefaultPolicyEngine_URLHosts(t *testing.T) {
	engine := NewDefaultPolicyEngine()
	if err := engine.DenyHost(`(^|\.)example\.org$`); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tcs := []struct {
		args string
		want Effect
	}{
		{`{"url":"https://scikit-learn.org/stable/"}`, EffectAllow},
		{`{"url":"http://localhost:8080/admin"}`, EffectDeny},
		{`{"url":"http://127.0.0.1/"}`, EffectDeny},
		{`{"url":"http://169.254.169.254/latest/meta-data"}`, EffectDeny},
		{`{"url":"http://10.1.2.3/"}`, EffectDeny},
		{`{"url":"https://docs.example.org/x"}`, EffectDeny},
		{`{"command":"list"}`, EffectAllow},
	}
	for _, tc := range tcs {
		res, err := engine.Evaluate(ctx, Request{Tool: "scraper", Arguments: tc.args})
		if err != nil {
			t.Fatalf("Evaluate(%s): %v", tc.args, err)
		}
		if res.Effect != tc.want {
			t.Errorf("Evaluate(%s) = %s (%s), want %s", tc.args, res.Effect, res.Reason, tc.want)
		}
	}
}

func TestNewPolicyEngine(t *testing.T) {
	engine, err := NewPolicyEngine(Rules{
		DeniedTools:          []string{"scraper"},
		DeniedPatterns:       []string{`\.\./`},
		AllowPrivateNetworks: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if res, _ := engine.Evaluate(ctx, Request{Tool: "scraper"}); res.Effect != EffectDeny {
		t.Errorf("scraper should be denied")
	}
	if res, _ := engine.Evaluate(ctx, Request{Tool: "workspace", Arguments: `{"filename":"../secrets"}`}); res.Effect != EffectDeny {
		t.Errorf("traversal pattern should be denied")
	}
	if res, _ := engine.Evaluate(ctx, Request{Tool: "search", Arguments: `{"url":"http://localhost/"}`}); res.Effect != EffectAllow {
		t.Errorf("private networks were allowed")
	}

	if _, err := NewPolicyEngine(Rules{DeniedPatterns: []string{"("}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
