package bridge

// CommandKind 本地命令的判别标签
type CommandKind string

const (
	CommandSubmitCode        CommandKind = "submit_code"
	CommandRequestValue      CommandKind = "request_value"
	CommandRequestValueInfos CommandKind = "request_value_infos"
	CommandRequestKernelInfo CommandKind = "request_kernel_info"
)

// Command 本地命令，一经发出即不可变
type Command interface {
	CommandKind() CommandKind
}

// SubmitCode 向内核提交一段代码执行
type SubmitCode struct {
	Code string `json:"code"`
}

func (c *SubmitCode) CommandKind() CommandKind { return CommandSubmitCode }

// RequestValue 请求内核中某个变量的当前值
type RequestValue struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
}

func (c *RequestValue) CommandKind() CommandKind { return CommandRequestValue }

// RequestValueInfos 请求内核中全部变量的摘要
type RequestValueInfos struct{}

func (c *RequestValueInfos) CommandKind() CommandKind { return CommandRequestValueInfos }

// RequestKernelInfo 请求内核实现与语言信息
type RequestKernelInfo struct{}

func (c *RequestKernelInfo) CommandKind() CommandKind { return CommandRequestKernelInfo }
