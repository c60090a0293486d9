package framegraph

import "errors"

// Sentinel errors returned by the builder and the compiler. Callers can
// match them with errors.Is; most are returned wrapped with the pass or
// resource name that triggered them.
var (
	// ErrCompiled is returned when a declaration is attempted after
	// Compile has run. A compiled graph is immutable.
	ErrCompiled = errors.New("framegraph: graph already compiled")

	// ErrNotCompiled is returned by operations that require a compiled
	// graph, such as barrier introspection before Compile.
	ErrNotCompiled = errors.New("framegraph: graph not compiled")

	// ErrExecuted is returned when any operation other than Finish is
	// attempted after Execute has run. A builder drives one frame.
	ErrExecuted = errors.New("framegraph: graph already executed")

	// ErrInvalidDesc is returned when a transient resource is declared
	// with an invalid descriptor (undefined format, zero extent or size).
	ErrInvalidDesc = errors.New("framegraph: invalid resource descriptor")

	// ErrInvalidHandle is returned when a declaration references the
	// zero handle or a handle from another builder.
	ErrInvalidHandle = errors.New("framegraph: invalid resource handle")

	// ErrDanglingHandle is returned by Compile when a pass references a
	// handle with no backing resource declaration.
	ErrDanglingHandle = errors.New("framegraph: dangling resource handle")

	// ErrNilResource is returned when registering a nil external
	// resource or surface.
	ErrNilResource = errors.New("framegraph: nil external resource")

	// ErrDuplicateDepth is returned when a pass declares a second
	// depth/stencil attachment.
	ErrDuplicateDepth = errors.New("framegraph: depth attachment already declared")

	// ErrNoRecorder is returned by Execute when the builder was created
	// without a command recorder.
	ErrNoRecorder = errors.New("framegraph: no command recorder configured")
)
