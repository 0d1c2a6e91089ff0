package controller

import "fmt"

// Kind classifies a tick failure so the recovery policy can be driven by
// error category instead of blanket suppression.
type Kind int

const (
	// KindRender: the render function failed. The tick is abandoned.
	KindRender Kind = iota
	// KindHardware: a panel call failed after in-tick fallback was
	// exhausted. The tick is abandoned.
	KindHardware
	// KindConfig: the snapshot carried an unusable configuration.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindHardware:
		return "hardware"
	case KindConfig:
		return "config"
	}
	return "unknown"
}

// Error is a tick failure tagged with its category.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func hardwareErr(op string, err error) *Error {
	return &Error{Kind: KindHardware, Op: op, Err: err}
}

func renderErr(err error) *Error {
	return &Error{Kind: KindRender, Op: "render", Err: err}
}
