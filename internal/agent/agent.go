// internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/odin/api/schemas"
	"github.com/xkilldash9x/odin/internal/action"
	"github.com/xkilldash9x/odin/internal/config"
	"github.com/xkilldash9x/odin/internal/memory"
	"github.com/xkilldash9x/odin/internal/safety"
)

// Agent drives a GUI task to completion with a ReAct loop. An Agent runs one
// task at a time and must be Reset before it is reused.
type Agent struct {
	cfg      config.AgentConfig
	capturer Capturer
	llm      schemas.LLMClient
	executor Executor
	logger   *zap.Logger

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	onStep StepHook

	mu      sync.Mutex
	state   State
	used    bool
	running bool
	stopped bool
	cancel  context.CancelFunc
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithClock replaces the wall clock used for safety accounting and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithSleep replaces the interruptible sleep used for step delays and
// safety back-off.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) { a.sleep = sleep }
}

// WithStepHook registers a callback invoked after each completed step.
func WithStepHook(hook StepHook) Option {
	return func(a *Agent) { a.onStep = hook }
}

// New creates an agent. The collaborators are owned by the caller; the agent
// never closes them.
func New(cfg config.AgentConfig, capturer Capturer, llm schemas.LLMClient, executor Executor, opts ...Option) (*Agent, error) {
	if capturer == nil || llm == nil || executor == nil {
		return nil, ErrNilCollaborator
	}
	a := &Agent{
		cfg:      cfg,
		capturer: capturer,
		llm:      llm,
		executor: executor,
		logger:   zap.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
		state:    StateInit,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("agent")
	return a, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns the current loop state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Stop asks a running loop to terminate. It is safe to call from any
// goroutine and is a no-op when nothing is running.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.stopped = true
		a.cancel()
	}
}

// Reset makes a finished agent reusable.
func (a *Agent) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrRunning
	}
	a.used = false
	a.stopped = false
	a.state = StateInit
	return nil
}

// Run executes task and returns its result. Run never panics and always
// returns a well-formed result.
func (a *Agent) Run(ctx context.Context, task string) RunResult {
	a.mu.Lock()
	if a.running || a.used {
		a.mu.Unlock()
		msg := "agent must be Reset before another run"
		if a.running {
			msg = "agent is already running"
		}
		started := a.now()
		return RunResult{
			RunID:       uuid.NewString(),
			Task:        task,
			Message:     msg,
			FailureCode: ErrCodeInvalidConfig,
			StartedAt:   started,
			FinishedAt:  started,
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.used = true
	a.running = true
	a.stopped = false
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		cancel()
		a.mu.Lock()
		a.running = false
		a.cancel = nil
		a.mu.Unlock()
	}()

	r := &run{
		agent:   a,
		ctx:     runCtx,
		task:    task,
		id:      uuid.NewString(),
		started: a.now(),
	}
	r.logger = a.logger.With(zap.String("run_id", r.id))
	return r.execute()
}

// run holds the state of a single Run. Memory and the gate live here so
// nothing leaks between runs.
type run struct {
	agent  *Agent
	ctx    context.Context
	logger *zap.Logger

	task    string
	id      string
	started time.Time

	parser *action.Parser
	gate   *safety.Gate
	memory *memory.Memory
	scoped ScopedCapturer

	step     int
	executed int
	history  []ActionRecord
	cur      stepState
	result   *RunResult
}

// stepState is reset at the start of every OBSERVING.
type stepState struct {
	shot          *schemas.Screenshot
	reply         string
	action        action.Action
	verdict       safety.Verdict
	outcome       *schemas.ExecutionOutcome
	parseFailures int
	denials       int
}

func (r *run) execute() (result RunResult) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Recovered from panic in agent loop.", zap.Any("panic", p), zap.Stack("stack"))
			result = r.finish(false, ErrCodeCollaboratorFailure, fmt.Sprintf("unexpected fault: %v", p))
		}
	}()
	defer r.release()

	state := StateInit
	for {
		if err := r.ctx.Err(); err != nil {
			return r.cancelled(err)
		}
		r.agent.setState(state)
		r.logger.Debug("State transition.", zap.String("state", string(state)), zap.Int("step", r.step))

		var done *RunResult
		switch state {
		case StateInit:
			state, done = r.initialize()
		case StateObserving:
			state, done = r.observe()
		case StateReasoning:
			state, done = r.reason()
		case StateParsing:
			state, done = r.parse()
		case StateSafetyCheck:
			state, done = r.check()
		case StateExecuting:
			state, done = r.perform()
		case StateEvaluating:
			state, done = r.evaluate()
		default:
			res := r.finish(false, ErrCodeCollaboratorFailure, fmt.Sprintf("unknown state %q", state))
			done = &res
		}
		if done != nil {
			return *done
		}
	}
}

func (r *run) initialize() (State, *RunResult) {
	cfg := r.agent.cfg
	if r.task == "" {
		return r.fail(ErrCodeInvalidConfig, "task must not be empty")
	}
	if err := cfg.Validate(); err != nil {
		return r.fail(ErrCodeInvalidConfig, fmt.Sprintf("invalid agent config: %v", err))
	}
	policy, err := safety.PolicyFromConfig(cfg.Safety)
	if err != nil {
		return r.fail(ErrCodeInvalidConfig, fmt.Sprintf("invalid safety config: %v", err))
	}

	// Parser and gate share the inset rectangle so edge points fail parsing.
	r.parser = action.NewParser(action.Options{
		Bounds:      policy.Bounds,
		GridEnabled: cfg.UseGrid,
		GridStep:    cfg.GridStep,
		MaxWait:     cfg.MaxWait,
	})
	r.gate = safety.NewGate(policy, r.logger)
	r.memory = memory.New(memory.Config{
		MaxEntries: cfg.Memory.MaxEntries,
		MinWindow:  cfg.Memory.MinWindow,
		MaxTokens:  cfg.Memory.MaxTokens,
	})
	r.memory.Append(memory.Entry{Kind: memory.KindTask, Text: r.task, At: r.agent.now()})

	if sc, ok := r.agent.capturer.(ScopedCapturer); ok {
		if _, err := guard("capturer", func() (struct{}, error) { return struct{}{}, sc.Open(r.ctx) }); err != nil {
			return r.collaboratorFailure("open screen capture", err)
		}
		r.scoped = sc
	}

	r.logger.Info("Agent run starting.", zap.String("task", r.task), zap.Int("max_steps", cfg.MaxSteps))
	return StateObserving, nil
}

func (r *run) observe() (State, *RunResult) {
	r.cur = stepState{}
	opts := schemas.CaptureOptions{GridOverlay: r.agent.cfg.UseGrid, GridStep: r.agent.cfg.GridStep}
	shot, err := guard("capturer", func() (*schemas.Screenshot, error) {
		return r.agent.capturer.Capture(r.ctx, opts)
	})
	if err != nil {
		return r.collaboratorFailure("screen capture", err)
	}
	if shot == nil {
		return r.collaboratorFailure("screen capture", errors.New("no screenshot returned"))
	}
	r.cur.shot = shot
	r.memory.Append(memory.Entry{
		Kind:         memory.KindObservation,
		Step:         r.step + 1,
		ScreenshotID: shot.ID,
		Text:         fmt.Sprintf("screenshot %s (%dx%d)", shot.ID, shot.Width, shot.Height),
		At:           r.agent.now(),
	})
	return StateReasoning, nil
}

func (r *run) reason() (State, *RunResult) {
	cfg := r.agent.cfg
	req := schemas.CompletionRequest{
		SystemPrompt: SystemPrompt(cfg),
		History:      history(r.memory.Snapshot()),
		Prompt:       turnPrompt(r.task, r.step+1, cfg.MaxSteps, r.cur.shot),
		Image:        r.cur.shot,
	}
	reply, err := guard("model", func() (string, error) { return r.agent.llm.Complete(r.ctx, req) })
	if err != nil {
		return r.collaboratorFailure("model", err)
	}
	r.cur.reply = reply
	r.memory.Append(memory.Entry{Kind: memory.KindReasoning, Step: r.step + 1, Text: reply, At: r.agent.now()})
	return StateParsing, nil
}

func (r *run) parse() (State, *RunResult) {
	res := r.parser.Parse(r.cur.reply)
	if res.OK() {
		r.cur.action = res.Action
		if res.Action.Kind.IsTerminal() {
			return StateEvaluating, nil
		}
		return StateSafetyCheck, nil
	}

	r.cur.parseFailures++
	r.logger.Warn("Could not parse model reply.",
		zap.Int("step", r.step+1),
		zap.Int("attempt", r.cur.parseFailures),
		zap.Error(res.Err))
	r.memory.Append(memory.Entry{
		Kind: memory.KindFeedback,
		Step: r.step + 1,
		Text: fmt.Sprintf("Parse error: %s. Respond with exactly one valid JSON action directive.", res.Err.Error()),
		At:   r.agent.now(),
	})
	if r.cur.parseFailures > r.agent.cfg.MaxParseRetries {
		return r.fail(ErrCodeParseFailure, fmt.Sprintf("parse retry cap reached after %d attempts: %s",
			r.cur.parseFailures, res.Err.Error()))
	}
	return StateReasoning, nil
}

func (r *run) check() (State, *RunResult) {
	a := r.cur.action
	v := r.gate.Evaluate(a, r.agent.now())
	r.cur.verdict = v
	if v.Approved {
		return StateExecuting, nil
	}

	r.cur.denials++
	r.logger.Warn("Action denied by safety gate.",
		zap.String("action", a.Summary()),
		zap.String("reason", string(v.Reason)),
		zap.String("detail", v.Detail))
	r.memory.Append(memory.Entry{
		Kind: memory.KindFeedback,
		Step: r.step + 1,
		Text: fmt.Sprintf("Action %s was blocked by safety: %s. Choose a different action.", a.Summary(), v),
		At:   r.agent.now(),
	})
	if r.cur.denials > r.agent.cfg.MaxDenialRetries {
		return r.fail(ErrCodeSafetyDenial, fmt.Sprintf("safety denial retry cap reached after %d attempts: %s",
			r.cur.denials, v))
	}
	if v.RetryAfter > 0 && (v.Reason == safety.ReasonCooldown || v.Reason == safety.ReasonRateLimited) {
		// A cancelled sleep is reported at the loop head.
		_ = r.agent.sleep(r.ctx, v.RetryAfter)
	}
	return StateReasoning, nil
}

func (r *run) perform() (State, *RunResult) {
	a := r.cur.action
	outcome, err := guard("executor", func() (schemas.ExecutionOutcome, error) {
		return r.agent.executor.Perform(r.ctx, a)
	})
	if err != nil {
		return r.collaboratorFailure("execution backend", err)
	}

	at := r.agent.now()
	if outcome.Succeeded() {
		r.gate.Record(a, at)
		r.executed++
		r.logger.Info("Action executed.", zap.Int("step", r.step+1), zap.String("action", a.Summary()))
	} else {
		r.logger.Warn("Action failed.",
			zap.Int("step", r.step+1),
			zap.String("action", a.Summary()),
			zap.String("reason", outcome.Reason),
			zap.String("code", string(ErrCodeExecutionFailure)))
	}
	r.cur.outcome = &outcome
	r.memory.Append(memory.Entry{Kind: memory.KindAction, Step: r.step + 1, Action: &a, Outcome: &outcome, At: at})
	r.history = append(r.history, ActionRecord{Step: r.step + 1, Action: a, Outcome: outcome, At: at})
	return StateEvaluating, nil
}

func (r *run) evaluate() (State, *RunResult) {
	r.step++
	a := r.cur.action
	cfg := r.agent.cfg

	if a.Kind.IsTerminal() {
		r.history = append(r.history, ActionRecord{Step: r.step, Action: a, At: r.agent.now()})
	}
	if r.agent.onStep != nil {
		r.agent.onStep(StepEvent{
			Step:    r.step,
			State:   StateEvaluating,
			Action:  a,
			Verdict: r.cur.verdict,
			Outcome: r.cur.outcome,
		})
	}

	switch a.Kind {
	case action.KindDone:
		res := r.finish(true, "", a.Message)
		return StateTerminated, &res
	case action.KindFail:
		return r.fail(ErrCodeTaskFailed, a.Message)
	}
	if r.step >= cfg.MaxSteps {
		return r.fail(ErrCodeBudgetExhausted, fmt.Sprintf("step budget exhausted: max steps reached (%d)", cfg.MaxSteps))
	}
	_ = r.agent.sleep(r.ctx, cfg.StepDelay)
	return StateObserving, nil
}

// guard runs a collaborator call and converts a panic into an error.
func guard[T any](collaborator string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &collaboratorPanic{collaborator: collaborator, value: p}
		}
	}()
	return fn()
}

func (r *run) collaboratorFailure(what string, err error) (State, *RunResult) {
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		res := r.cancelled(ctxErr)
		return StateTerminated, &res
	}
	return r.fail(ErrCodeCollaboratorFailure, fmt.Sprintf("%s failed: %v", what, err))
}

func (r *run) cancelled(err error) RunResult {
	r.agent.mu.Lock()
	stopped := r.agent.stopped
	r.agent.mu.Unlock()
	if stopped {
		return r.finish(false, ErrCodeCancelled, "stopped by user")
	}
	return r.finish(false, ErrCodeCancelled, fmt.Sprintf("run cancelled: %v", err))
}

func (r *run) fail(code ErrorCode, msg string) (State, *RunResult) {
	res := r.finish(false, code, msg)
	return StateTerminated, &res
}

// finish builds the result once. Later calls return the first result.
func (r *run) finish(success bool, code ErrorCode, msg string) RunResult {
	if r.result != nil {
		return *r.result
	}
	finished := r.agent.now()
	res := RunResult{
		RunID:           r.id,
		Task:            r.task,
		Success:         success,
		Message:         msg,
		TotalSteps:      r.step,
		ActionsExecuted: r.executed,
		Duration:        finished.Sub(r.started),
		FailureCode:     code,
		StartedAt:       r.started,
		FinishedAt:      finished,
	}
	if r.agent.cfg.IncludeHistory {
		res.History = r.history
	}
	if r.agent.cfg.IncludeTranscript && r.memory != nil {
		res.Transcript = r.memory.Snapshot()
	}
	r.result = &res
	r.agent.setState(StateTerminated)

	fields := []zap.Field{
		zap.Bool("success", success),
		zap.Int("steps", res.TotalSteps),
		zap.Int("actions_executed", res.ActionsExecuted),
		zap.Duration("duration", res.Duration),
	}
	if success {
		r.logger.Info("Agent run finished.", append(fields, zap.String("message", msg))...)
	} else {
		r.logger.Error("Agent run failed.", append(fields, zap.String("code", string(code)), zap.String("message", msg))...)
	}
	return res
}

// release closes scoped resources. Close errors are logged only.
func (r *run) release() {
	if r.scoped == nil {
		return
	}
	sc := r.scoped
	r.scoped = nil
	if _, err := guard("capturer", func() (struct{}, error) { return struct{}{}, sc.Close() }); err != nil {
		r.logger.Warn("Failed to close screen capture.", zap.Error(err))
	}
}
