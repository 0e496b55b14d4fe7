/*
result.go - Structured operation outcomes

PURPOSE:
  Every mutating operation can be rendered for a user without the caller
  inspecting error internals: a success flag, a human-readable message, and
  the error kind on failure.

USAGE:
  _, err := engine.Approve(ctx, key, part)
  outcome := chit.Describe(err)
  // outcome.Success, outcome.Message, outcome.Kind
*/
package chit

// Outcome is the user-visible shape of an operation result.
type Outcome struct {
	Success bool
	Message string
	Kind    ErrorKind
}

// Describe renders an error (or nil) as an Outcome.
func Describe(err error) Outcome {
	if err == nil {
		return Outcome{Success: true, Message: "ok"}
	}
	return Outcome{Success: false, Message: err.Error(), Kind: KindOf(err)}
}
