package cypher

import "fmt"

// ErrorKind classifies an execution failure per spec.md §7's taxonomy.
type ErrorKind string

const (
	KindSyntaxError      ErrorKind = "SyntaxError"
	KindSemanticError    ErrorKind = "SemanticError"
	KindParameterMissing ErrorKind = "ParameterMissing"
	KindNotImplemented   ErrorKind = "NotImplemented"
	KindGeneral          ErrorKind = "General"
)

// wireCode maps each ErrorKind to its Neo4j-compatible wire code.
var wireCode = map[ErrorKind]string{
	KindSyntaxError:      "Neo.ClientError.Statement.SyntaxError",
	KindSemanticError:    "Neo.ClientError.Statement.SemanticError",
	KindParameterMissing: "Neo.ClientError.Statement.ParameterMissing",
	KindNotImplemented:   "Neo.ClientError.Statement.NotImplemented",
	KindGeneral:          "Neo.DatabaseError.General.UnknownError",
}

// ExecError is the single error type Execute returns for query-level
// failures; the dispatcher needs no additional mapping table beyond the
// HTTP status for each Kind (spec.md §9's "unified Result<T, ExecError>").
type ExecError struct {
	Kind    ErrorKind
	Message string
}

func (e *ExecError) Error() string { return e.Message }

// Code returns the wire-visible Neo4j-compatible error code for e.Kind.
func (e *ExecError) Code() string { return wireCode[e.Kind] }

func newExecError(kind ErrorKind, format string, args ...interface{}) *ExecError {
	return &ExecError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func semanticErr(format string, args ...interface{}) *ExecError {
	return newExecError(KindSemanticError, format, args...)
}

func paramMissingErr(name string) *ExecError {
	return newExecError(KindParameterMissing, "Parameter `%s` not provided", name)
}

func syntaxErr(format string, args ...interface{}) *ExecError {
	return newExecError(KindSyntaxError, format, args...)
}

func notImplementedErr(format string, args ...interface{}) *ExecError {
	return newExecError(KindNotImplemented, format, args...)
}
