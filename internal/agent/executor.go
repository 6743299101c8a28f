package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexusrelay/agentproxy/internal/policy"
	"github.com/nexusrelay/agentproxy/pkg/models"
)

// ToolExecConfig bounds a single tool call's execution.
type ToolExecConfig struct {
	Timeout time.Duration
}

// DefaultToolTimeout is used when a tool has no per-tool override.
const DefaultToolTimeout = 30 * time.Second

// Executor runs tool calls one at a time, in the order the model requested
// them. Unlike a worker-pool executor, sequential execution is required
// here: the orchestrator may need to stop before the Nth call once a
// per-turn tool-call quota is reached, and that decision has to be made
// between calls, not after a parallel batch has already started them all.
type Executor struct {
	registry  *ToolRegistry
	resolver  *policy.Resolver
	evaluator *policy.Evaluator
	configs   map[string]ToolExecConfig
}

// NewExecutor builds an Executor bound to a tool registry and policy
// resolver.
func NewExecutor(registry *ToolRegistry, resolver *policy.Resolver) *Executor {
	return &Executor{
		registry:  registry,
		resolver:  resolver,
		evaluator: policy.NewEvaluator(resolver),
		configs:   make(map[string]ToolExecConfig),
	}
}

// WithGitTestRunner wires a pre-commit test runner into the policy
// evaluator, so GitPolicy.RequireTests (§4.2) can gate workspace_git_commit
// on a configured test command's exit code.
func (e *Executor) WithGitTestRunner(fn policy.TestRunner) *Executor {
	e.evaluator = e.evaluator.WithTestRunner(fn)
	return e
}

// sandboxGatedTools are canonical tool names subject to the sandbox
// permission mode (§4.2 rule 6), regardless of whether a container
// runtime is actually configured to back them.
var sandboxGatedTools = map[string]bool{
	"shell":              true,
	"python_exec":        true,
	"workspace_test_run": true,
}

// ConfigureTool sets a per-tool timeout override.
func (e *Executor) ConfigureTool(name string, cfg ToolExecConfig) {
	e.configs[name] = cfg
}

// ExecuteSequential runs calls in order, stopping early if shouldContinue
// returns false before a given call is attempted (used to implement the
// per-turn tool-call quota: the loop synthesizes a tool_limit_reached
// result for every call past the quota instead of attempting them).
func (e *Executor) ExecuteSequential(ctx context.Context, calls []models.ToolCall, toolPolicy *policy.Policy, shouldContinue func(index int) bool) []models.ToolResult {
	results := make([]models.ToolResult, 0, len(calls))
	executed := 0
	for i, call := range calls {
		if shouldContinue != nil && !shouldContinue(i) {
			results = append(results, models.ToolResult{
				ToolCallID: call.ID,
				OK:         false,
				Status:     429,
				Error: &models.ToolResultError{
					Code:    string(TerminationToolLimit),
					Tool:    call.Name,
					Message: "tool call quota exhausted for this turn",
				},
			})
			continue
		}
		results = append(results, e.executeOne(ctx, call, toolPolicy, executed))
		executed++
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, call models.ToolCall, toolPolicy *policy.Policy, executed int) models.ToolResult {
	canonical := call.Name
	if e.resolver != nil {
		canonical = e.resolver.CanonicalName(call.Name)
	}
	if e.evaluator != nil {
		decision := e.evaluator.Evaluate(ctx, toolPolicy, policy.CallInput{
			Name:              call.Name,
			RawInput:          call.Input,
			ToolCallsExecuted: executed,
			RequiresSandbox:   sandboxGatedTools[canonical],
		})
		if !decision.Allowed {
			return models.ToolResult{
				ToolCallID: call.ID,
				OK:         false,
				Status:     decision.Status,
				Error: &models.ToolResultError{
					Code:    decision.Code,
					Tool:    canonical,
					Message: decision.Reason,
				},
			}
		}
	}

	timeout := DefaultToolTimeout
	if cfg, ok := e.configs[canonical]; ok && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		result *ToolResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrToolPanic, r)}
			}
		}()
		res, err := e.registry.Execute(runCtx, call.Name, call.Input)
		done <- outcome{result: res, err: err}
	}()

	select {
	case <-runCtx.Done():
		return models.ToolResult{
			ToolCallID: call.ID,
			OK:         false,
			Status:     504,
			Error: &models.ToolResultError{
				Code:    string(ToolErrorTimeout),
				Tool:    canonical,
				Message: fmt.Sprintf("tool call exceeded %s timeout", timeout),
			},
		}
	case out := <-done:
		if out.err != nil {
			return models.ToolResult{
				ToolCallID: call.ID,
				OK:         false,
				Status:     500,
				Error: &models.ToolResultError{
					Code:    string(ToolErrorExecution),
					Tool:    canonical,
					Message: out.err.Error(),
				},
			}
		}
		if out.result == nil {
			return models.ToolResult{ToolCallID: call.ID, OK: true, Status: 200}
		}
		content := policy.Sanitize(out.result.Content)
		if out.result.IsError {
			return models.ToolResult{
				ToolCallID: call.ID,
				OK:         false,
				Status:     200,
				Content:    content,
				Error: &models.ToolResultError{
					Code:    string(ToolErrorExecution),
					Tool:    canonical,
					Message: content,
				},
			}
		}
		return models.ToolResult{ToolCallID: call.ID, OK: true, Status: 200, Content: content}
	}
}

// ResultsToJSON renders tool results as the content field carried by the
// synthesized tool-role Turn appended to session history.
func ResultsToJSON(results []models.ToolResult) json.RawMessage {
	payload, err := json.Marshal(results)
	if err != nil {
		return json.RawMessage(`[]`)
	}
	return payload
}
