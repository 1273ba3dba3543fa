package protocol

// LanguageInfo 内核语言描述，字段允许缺省
type LanguageInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// KernelInfoReply kernel_info_reply 的内容
type KernelInfoReply struct {
	Implementation        string        `json:"implementation,omitempty"`
	ImplementationVersion string        `json:"implementation_version,omitempty"`
	LanguageInfo          *LanguageInfo `json:"language_info,omitempty"`
}

// ExecuteRequest execute_request 的内容
type ExecuteRequest struct {
	Code            string `json:"code"`
	Silent          bool   `json:"silent,omitempty"`
	StoreHistory    bool   `json:"store_history,omitempty"`
	StopOnError     bool   `json:"stop_on_error,omitempty"`
	AllowStdin      bool   `json:"allow_stdin,omitempty"`
	ExecutionTarget string `json:"execution_target,omitempty"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ExecuteReply execute_reply 的内容，Status 为 "ok" 或 "error"
type ExecuteReply struct {
	Status         string `json:"status"`
	ExecutionCount int    `json:"execution_count,omitempty"`
	ErrName        string `json:"ename,omitempty"`
	ErrValue       string `json:"evalue,omitempty"`
}

// ExecuteResult execute_result 的内容
type ExecuteResult struct {
	Data           map[string]string `json:"data,omitempty"`
	ExecutionCount int               `json:"execution_count,omitempty"`
}

// StreamContent stream 的内容，Name 为 "stdout" 或 "stderr"
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ErrorContent error 的内容
type ErrorContent struct {
	ErrName   string   `json:"ename,omitempty"`
	ErrValue  string   `json:"evalue,omitempty"`
	Traceback []string `json:"traceback,omitempty"`
}

// StatusContent status 的内容
type StatusContent struct {
	ExecutionState string `json:"execution_state"`
}

// ValueRequest value_request 的内容
type ValueRequest struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
}

// ValueReply value_reply 的内容
type ValueReply struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Value    string `json:"value,omitempty"`
}

// ValueInfo 单个变量的摘要信息
type ValueInfo struct {
	Name          string `json:"name"`
	TypeName      string `json:"type_name,omitempty"`
	PreviewValue  string `json:"preview_value,omitempty"`
	FormattedKind string `json:"formatted_kind,omitempty"`
}

// ValueInfosReply value_infos_reply 的内容
type ValueInfosReply struct {
	Values []ValueInfo `json:"values,omitempty"`
}

// KernelInfo 由一次 kernel_info 交换构造的只读快照
type KernelInfo struct {
	Implementation        string `json:"implementation,omitempty"`
	ImplementationVersion string `json:"implementation_version,omitempty"`
	LanguageName          string `json:"language_name,omitempty"`
	LanguageVersion       string `json:"language_version,omitempty"`
}

// NewKernelInfo 从回复内容构造快照，缺省字段保持为空
func NewKernelInfo(reply *KernelInfoReply) KernelInfo {
	info := KernelInfo{
		Implementation:        reply.Implementation,
		ImplementationVersion: reply.ImplementationVersion,
	}
	if reply.LanguageInfo != nil {
		info.LanguageName = reply.LanguageInfo.Name
		info.LanguageVersion = reply.LanguageInfo.Version
	}
	return info
}
