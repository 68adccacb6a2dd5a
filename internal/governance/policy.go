// Package governance decides whether the assistant may run a tool call.
package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the context of a tool call to be evaluated.
type Request struct {
	Tool      string
	Arguments string
	ChatID    string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates tool calls against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// Rules is the declarative form of a policy, as read from configuration.
type Rules struct {
	DeniedTools    []string `json:"deniedTools" yaml:"deniedTools"`
	DeniedPatterns []string `json:"deniedPatterns" yaml:"deniedPatterns"`
	DeniedHosts    []string `json:"deniedHosts" yaml:"deniedHosts"`
	// AllowPrivateNetworks lets URL arguments point at loopback and private addresses.
	AllowPrivateNetworks bool `json:"allowPrivateNetworks" yaml:"allowPrivateNetworks"`
}

// DefaultPolicyEngine denies by tool name, by argument pattern and by the
// host of any "url" argument.
type DefaultPolicyEngine struct {
	DeniedTools  map[string]bool
	DeniedRegex  []*regexp.Regexp
	DeniedHosts  []*regexp.Regexp
	BlockPrivate bool
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedTools:  make(map[string]bool),
		DeniedRegex:  make([]*regexp.Regexp, 0),
		DeniedHosts:  make([]*regexp.Regexp, 0),
		BlockPrivate: true,
	}
}

// NewPolicyEngine builds an engine from rules.
func NewPolicyEngine(r Rules) (*DefaultPolicyEngine, error) {
	e := NewDefaultPolicyEngine()
	e.BlockPrivate = !r.AllowPrivateNetworks
	for _, t := range r.DeniedTools {
		e.DenyTool(t)
	}
	for _, p := range r.DeniedPatterns {
		if err := e.DenyArguments(p); err != nil {
			return nil, fmt.Errorf("denied pattern %q: %w", p, err)
		}
	}
	for _, h := range r.DeniedHosts {
		if err := e.DenyHost(h); err != nil {
			return nil, fmt.Errorf("denied host %q: %w", h, err)
		}
	}
	return e, nil
}

func (e *DefaultPolicyEngine) DenyTool(name string) {
	e.DeniedTools[name] = true
}

func (e *DefaultPolicyEngine) DenyArguments(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

// DenyHost blocks URL arguments whose host matches pattern.
func (e *DefaultPolicyEngine) DenyHost(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedHosts = append(e.DeniedHosts, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedTools[req.Tool] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("Tool '%s' is restricted by system policy", req.Tool),
		}, nil
	}

	for _, re := range e.DeniedRegex {
		if re.MatchString(req.Arguments) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Arguments match restricted pattern: %s", re.String()),
			}, nil
		}
	}

	if host := urlHost(req.Arguments); host != "" {
		if e.BlockPrivate && isPrivateHost(host) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("Host '%s' is on a private network", host),
			}, nil
		}
		for _, re := range e.DeniedHosts {
			if re.MatchString(host) {
				return Result{
					Effect: EffectDeny,
					Reason: fmt.Sprintf("Host '%s' matches restricted pattern: %s", host, re.String()),
				}, nil
			}
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}

// urlHost extracts the host of a "url" field in JSON tool arguments.
func urlHost(arguments string) string {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.URL == "" {
		return ""
	}
	u, err := url.Parse(args.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
