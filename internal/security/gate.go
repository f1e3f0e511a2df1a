package security

import "log/slog"

// Gate combines risk classification, the autonomy ceiling, and per-tool
// rate limiting into a single validation decision for a proposed action.
type Gate struct {
	autonomy Autonomy
	limiter  *ToolRateLimiter
}

// NewGate builds a Gate enforcing autonomy and the given rate limits.
func NewGate(autonomy Autonomy, perMinute, perHour int) *Gate {
	return &Gate{
		autonomy: autonomy,
		limiter:  NewToolRateLimiter(perMinute, perHour),
	}
}

// ValidateCommand classifies command's risk and gates it against the
// configured autonomy and rate limit, logging every decision.
func (g *Gate) ValidateCommand(tool, command string) ValidationResult {
	risk := ClassifyCommand(command)
	result := decide(risk, g.autonomy)
	if result.Decision == Allowed && !g.limiter.Allow(tool) {
		result = ValidationResult{Decision: Denied, Risk: risk, Reason: rateLimitReason(tool)}
	}
	g.log(tool, result)
	return result
}

// ValidatePath classifies a filesystem access's risk and gates it the same
// way ValidateCommand does.
func (g *Gate) ValidatePath(tool, path, workspaceRoot string, write bool) ValidationResult {
	risk := ClassifyPath(path, workspaceRoot, write)
	result := decide(risk, g.autonomy)
	if result.Decision == Allowed && !g.limiter.Allow(tool) {
		result = ValidationResult{Decision: Denied, Risk: risk, Reason: rateLimitReason(tool)}
	}
	g.log(tool, result)
	return result
}

func (g *Gate) log(tool string, result ValidationResult) {
	slog.Info("security: action classified",
		"tool", tool,
		"risk", result.Risk.String(),
		"autonomy", g.autonomy.String(),
		"decision", result.Decision.String(),
		"reason", result.Reason,
	)
}

// decide applies the Risk x Autonomy decision table:
//   - Critical is always Denied, regardless of autonomy.
//   - High is Denied under ReadOnly, NeedsApproval otherwise.
//   - Medium is Denied under ReadOnly, Allowed under Supervised/Full.
//   - Low/None are always Allowed.
func decide(risk Risk, autonomy Autonomy) ValidationResult {
	switch risk {
	case RiskCritical:
		return ValidationResult{Decision: Denied, Risk: risk, Reason: "critical-risk actions are never permitted"}
	case RiskHigh:
		if autonomy == ReadOnly {
			return ValidationResult{Decision: Denied, Risk: risk, Reason: "high-risk action requires at least supervised autonomy"}
		}
		return ValidationResult{Decision: NeedsApproval, Risk: risk}
	case RiskMedium:
		if autonomy == ReadOnly {
			return ValidationResult{Decision: Denied, Risk: risk, Reason: "medium-risk action requires at least supervised autonomy"}
		}
		return ValidationResult{Decision: Allowed, Risk: risk}
	default:
		return ValidationResult{Decision: Allowed, Risk: risk}
	}
}
