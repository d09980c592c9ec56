package api

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// CompileRequest asks the server to compile X# source to XAssembly.
type CompileRequest struct {
	Filename         string `json:"filename"`
	Source           string `json:"source"`
	RemoveTrailing   bool   `json:"removeTrailing"`
	AllowFileInclude bool   `json:"allowFileInclude"`
}

// CompileResponse carries the generated XAssembly lines.
type CompileResponse struct {
	Assembly []string `json:"assembly"`
}

// AssembleRequest asks the server to assemble XAssembly text to binary
// words.
type AssembleRequest struct {
	Filename string   `json:"filename"`
	Lines    []string `json:"lines"`
}

// AssembleResponse carries the encoded binary words.
type AssembleResponse struct {
	Words []string `json:"words"`
}

// RunRequest asks the server to execute an assembled program once,
// stateless (no session is created).
type RunRequest struct {
	Words    []string `json:"words"`
	MaxSteps int      `json:"maxSteps"`
}

// RunResponse reports the machine state after one Run call.
type RunResponse struct {
	TimedOut bool    `json:"timedOut"`
	Halted   bool    `json:"halted"`
	Steps    int     `json:"steps"`
	A        int     `json:"a"`
	D        int     `json:"d"`
	Screen   []Point `json:"screen"`
}

// Point is a single lit framebuffer cell, serialized for clients.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SessionCreateRequest configures a new clocked execution session.
type SessionCreateRequest struct {
	MaxSteps int `json:"maxSteps"`
}

// SessionStatusResponse describes a session's current machine state.
type SessionStatusResponse struct {
	ID     string  `json:"id"`
	Halted bool    `json:"halted"`
	Steps  int     `json:"steps"`
	PC     int     `json:"pc"`
	A      int     `json:"a"`
	D      int     `json:"d"`
	Screen []Point `json:"screen"`
}

// LoadProgramRequest loads an assembled program into a session without
// running it.
type LoadProgramRequest struct {
	Words []string `json:"words"`
}
