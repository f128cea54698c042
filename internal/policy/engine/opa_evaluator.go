package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	roledomain "careers-portal/backend/internal/role/domain"
	sessiondomain "careers-portal/backend/internal/session/domain"
)

const defaultQuery = "data.careers.access.allow"

// DefaultPolicy admits any session when no role is required, an exact role match, and
// admins everywhere.
const DefaultPolicy = `package careers.access

default allow := false

allow if input.required_role == ""

allow if input.session.role == input.required_role

allow if input.session.role == "admin"
`

// OPAEvaluator evaluates role access with an OPA Rego policy compiled once at startup.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"access.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile access policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare access policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow evaluates the policy for s. Any evaluation problem is returned as an error and
// callers must treat it as a denial.
func (e *OPAEvaluator) Allow(ctx context.Context, s *sessiondomain.Session, required roledomain.Role) (bool, error) {
	if s == nil {
		return false, nil
	}
	input := map[string]interface{}{
		"required_role": string(required),
		"session": map[string]interface{}{
			"email": s.Email,
			"role":  string(s.Role),
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval access policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("access policy returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("access policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck evaluates a fixed admin request; it fails only if the engine is broken.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	ok, err := e.Allow(ctx, &sessiondomain.Session{Role: roledomain.RoleAdmin}, roledomain.RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("access policy denied admin health probe")
	}
	return nil
}
