package models

// RequestInfo 存储了关于 HTTP 请求的上下文信息。
type RequestInfo struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	RemoteAddr string `json:"remote_addr"`
	UserAgent  string `json:"user_agent"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
}

// 错误类型，写入 ErrorInfo.Type 便于日志检索。
const (
	ErrorTypeNotFound   = "not_found"
	ErrorTypeValidation = "validation_error"
	ErrorTypeProvider   = "provider_error"
	ErrorTypeParse      = "parse_error"
	ErrorTypeStorage    = "storage_error"
	ErrorTypeInternal   = "internal_error"
)

// ErrorInfo 存储了关于错误的结构化信息。
type ErrorInfo struct {
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`        // 错误的类型，例如 "storage_error", "validation_error"
	StatusCode int    `json:"status_code,omitempty"` // 相关的HTTP状态码
}

// NewErrorInfo 用 error 构造 ErrorInfo。
func NewErrorInfo(err error, errType string) ErrorInfo {
	info := ErrorInfo{Type: errType}
	if err != nil {
		info.Message = err.Error()
	}
	return info
}
