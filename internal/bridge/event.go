package bridge

import (
	"github.com/megamanics/interactive/internal/protocol"
)

// EventKind 本地事件的判别标签
type EventKind string

const (
	EventKernelInfoProduced     EventKind = "kernel_info_produced"
	EventValueProduced          EventKind = "value_produced"
	EventValueInfosProduced     EventKind = "value_infos_produced"
	EventReturnValueProduced    EventKind = "return_value_produced"
	EventStandardOutputProduced EventKind = "standard_output_produced"
	EventErrorProduced          EventKind = "error_produced"
	EventCommandSucceeded       EventKind = "command_succeeded"
	EventCommandFailed          EventKind = "command_failed"
)

// Event 描述一次命令产生的结果，总能回溯到引发它的命令
type Event interface {
	EventKind() EventKind
	Command() Command
}

// KernelInfoProduced 内核信息请求的结果
type KernelInfoProduced struct {
	Cmd  Command             `json:"-"`
	Info protocol.KernelInfo `json:"info"`
}

func (e *KernelInfoProduced) EventKind() EventKind { return EventKernelInfoProduced }
func (e *KernelInfoProduced) Command() Command     { return e.Cmd }

// ValueProduced 变量值请求的结果
type ValueProduced struct {
	Cmd      Command `json:"-"`
	Name     string  `json:"name"`
	MimeType string  `json:"mime_type,omitempty"`
	Value    string  `json:"value,omitempty"`
}

func (e *ValueProduced) EventKind() EventKind { return EventValueProduced }
func (e *ValueProduced) Command() Command     { return e.Cmd }

// ValueInfosProduced 变量摘要请求的结果
type ValueInfosProduced struct {
	Cmd    Command              `json:"-"`
	Values []protocol.ValueInfo `json:"values,omitempty"`
}

func (e *ValueInfosProduced) EventKind() EventKind { return EventValueInfosProduced }
func (e *ValueInfosProduced) Command() Command     { return e.Cmd }

// ReturnValueProduced 代码执行产生的返回值
type ReturnValueProduced struct {
	Cmd            Command           `json:"-"`
	Data           map[string]string `json:"data,omitempty"`
	ExecutionCount int               `json:"execution_count,omitempty"`
}

func (e *ReturnValueProduced) EventKind() EventKind { return EventReturnValueProduced }
func (e *ReturnValueProduced) Command() Command     { return e.Cmd }

// StandardOutputProduced 代码执行期间的标准输出/错误流
type StandardOutputProduced struct {
	Cmd  Command `json:"-"`
	Name string  `json:"name"`
	Text string  `json:"text"`
}

func (e *StandardOutputProduced) EventKind() EventKind { return EventStandardOutputProduced }
func (e *StandardOutputProduced) Command() Command     { return e.Cmd }

// ErrorProduced 内核报告的执行错误
type ErrorProduced struct {
	Cmd       Command  `json:"-"`
	ErrName   string   `json:"ename,omitempty"`
	ErrValue  string   `json:"evalue,omitempty"`
	Traceback []string `json:"traceback,omitempty"`
}

func (e *ErrorProduced) EventKind() EventKind { return EventErrorProduced }
func (e *ErrorProduced) Command() Command     { return e.Cmd }

// CommandSucceeded 命令对应的交换正常完成
type CommandSucceeded struct {
	Cmd Command `json:"-"`
}

func (e *CommandSucceeded) EventKind() EventKind { return EventCommandSucceeded }
func (e *CommandSucceeded) Command() Command     { return e.Cmd }

// CommandFailed 命令对应的交换以错误结束
type CommandFailed struct {
	Cmd      Command `json:"-"`
	ErrName  string  `json:"ename,omitempty"`
	ErrValue string  `json:"evalue,omitempty"`
}

func (e *CommandFailed) EventKind() EventKind { return EventCommandFailed }
func (e *CommandFailed) Command() Command     { return e.Cmd }

// CommandOrEvent 双向总线上的统一元素：恰好包含一个命令或一个事件
type CommandOrEvent struct {
	Command Command `json:"command,omitempty"`
	Event   Event   `json:"event,omitempty"`
}

// IsEvent reports whether the envelope wraps an event.
func (ce CommandOrEvent) IsEvent() bool { return ce.Event != nil }
