// Package policy evaluates an optional rego admission policy over anchor
// requests before they are submitted. The capability sets remain the
// authoritative gate; policy can only deny earlier, never grant.
package policy

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.anchor.result"

type Input struct {
	Actor         string `json:"actor"`
	OwnerIdentity string `json:"owner_did"`
	Fingerprint   string `json:"fingerprint"`
	MetadataSize  int    `json:"metadata_size"`
	Fee           int64  `json:"fee"`
}

type Deny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type Result struct {
	Allow bool   `json:"allow"`
	Deny  []Deny `json:"deny,omitempty"`
}

type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngineFromPath loads and prepares a policy from a file or directory of
// rego modules. The policy must define data.anchor.result.
func NewEngineFromPath(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return nil, errors.New("policy path is required")
	}
	r := rego.New(
		rego.Query(defaultQuery),
		rego.StrictBuiltinErrors(true),
		rego.Load([]string{path}, nil),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Evaluate(ctx context.Context, input Input) (Result, error) {
	if e == nil {
		return Result{}, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Result{}, errors.New("empty policy result")
	}
	result, err := decodeResult(results[0].Expressions[0].Value)
	if err != nil {
		return Result{}, err
	}
	sort.Slice(result.Deny, func(i, j int) bool {
		if result.Deny[i].Code == result.Deny[j].Code {
			return result.Deny[i].Message < result.Deny[j].Message
		}
		return result.Deny[i].Code < result.Deny[j].Code
	})
	return result, nil
}

func decodeResult(value any) (Result, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return Result{}, err
	}
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}
