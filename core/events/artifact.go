package events

const (
	// KindChartEmitted identifies an emitted chart specification.
	KindChartEmitted Kind = "artifact.chart"
	// KindCodeExecutionStarted identifies code submitted for execution.
	KindCodeExecutionStarted Kind = "artifact.code_execution"
	// KindCodeResultEmitted identifies a code execution result.
	KindCodeResultEmitted Kind = "artifact.code_result"
	// KindUserInputRequested identifies a mid-turn request for user input.
	KindUserInputRequested Kind = "artifact.ask_user"
)

// ChartEmitted carries an opaque chart specification for the rendering
// surface.
type ChartEmitted struct {
	Base
	Spec string
}

// NewChartEmitted creates a chart emitted event.
func NewChartEmitted(spec string) ChartEmitted {
	return ChartEmitted{Base: NewBase(KindChartEmitted), Spec: spec}
}

// CodeExecutionStarted marks code submitted to a sandbox.
type CodeExecutionStarted struct {
	Base
	Language string
	Code     string
}

// NewCodeExecutionStarted creates a code execution started event.
func NewCodeExecutionStarted(language, code string) CodeExecutionStarted {
	return CodeExecutionStarted{Base: NewBase(KindCodeExecutionStarted), Language: language, Code: code}
}

// CodeResultEmitted carries the outcome of a sandbox execution.
type CodeResultEmitted struct {
	Base
	Outcome string
	Output  string
}

// NewCodeResultEmitted creates a code result emitted event.
func NewCodeResultEmitted(outcome, output string) CodeResultEmitted {
	return CodeResultEmitted{Base: NewBase(KindCodeResultEmitted), Outcome: outcome, Output: output}
}

// UserInputRequested marks a mid-turn request for user input.
type UserInputRequested struct {
	Base
	Prompt  string
	Options []string
}

// NewUserInputRequested creates an ask-user event.
func NewUserInputRequested(prompt string, options []string) UserInputRequested {
	return UserInputRequested{Base: NewBase(KindUserInputRequested), Prompt: prompt, Options: options}
}
