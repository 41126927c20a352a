package stream

type FrameType string

// Inbound frame types.
const (
	FrameConnected    FrameType = "connected"
	FrameSSHConnected FrameType = "ssh_connected"
	FrameOutput       FrameType = "output"
	FrameErrorOutput  FrameType = "error_output"
	FrameFinished     FrameType = "finished"
	FrameError        FrameType = "error"
	FrameSSHFailed    FrameType = "ssh_failed"
)

// Outbound frame types, terminal sessions only.
const (
	FrameInput     FrameType = "input"
	FrameCtrlC     FrameType = "ctrl_c"
	FrameResize    FrameType = "resize"
	FrameRunScript FrameType = "run_script"
)

// Frame is one JSON message on the stream, tagged by Type.
type Frame struct {
	Type        FrameType `json:"type"`
	Data        string    `json:"data,omitempty"`
	Message     string    `json:"message,omitempty"`
	Status      string    `json:"status,omitempty"`
	ExecutionID int64     `json:"execution_id,omitempty"`
	Cols        int       `json:"cols,omitempty"`
	Rows        int       `json:"rows,omitempty"`
	ScriptType  string    `json:"script_type,omitempty"`
	Content     string    `json:"content,omitempty"`
}

func InputFrame(data string) Frame {
	return Frame{Type: FrameInput, Data: data}
}

func CtrlCFrame() Frame {
	return Frame{Type: FrameCtrlC}
}

func ResizeFrame(cols, rows int) Frame {
	return Frame{Type: FrameResize, Cols: cols, Rows: rows}
}

func RunScriptFrame(scriptType, content string) Frame {
	return Frame{Type: FrameRunScript, ScriptType: scriptType, Content: content}
}
