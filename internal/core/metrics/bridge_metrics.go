package metrics

// 流适配层与会话的指标辅助函数
// 未设置全局 Metrics 时全部为空操作，导出回调路径上的错误一律忽略

const (
	MetricCallbacks        = "callbacks_total"
	MetricCallbackFailures = "callback_failures_total"
	MetricBytesRead        = "bytes_read_total"
	MetricLiveHandles      = "live_handles"
	MetricSessionsOpened   = "sessions_opened_total"
	MetricSessionsClosed   = "sessions_closed_total"
	MetricEngineStatus     = "engine_status_total"
	MetricDecodeSeconds    = "decode_seconds"
)

// RecordCallback 记录一次导出回调
func RecordCallback(op string) {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.IncrementCounter(MetricCallbacks, map[string]string{"op": op})
	}
}

// RecordCallbackFailure 记录一次返回失败哨兵值的回调
func RecordCallbackFailure(op string) {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.IncrementCounter(MetricCallbackFailures, map[string]string{"op": op})
	}
}

// RecordBytesRead 记录 read 回调交付的字节数
func RecordBytesRead(n int) {
	if n <= 0 {
		return
	}
	if m := GetGlobalMetrics(); m != nil {
		_ = m.AddCounter(MetricBytesRead, float64(n), nil)
	}
}

// HandleRegistered 存活句柄数加一
func HandleRegistered() {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.AddGauge(MetricLiveHandles, 1, nil)
	}
}

// HandleReleased 存活句柄数减一
func HandleReleased() {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.AddGauge(MetricLiveHandles, -1, nil)
	}
}

// SessionOpened 记录会话打开
func SessionOpened() {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.IncrementCounter(MetricSessionsOpened, nil)
	}
}

// SessionClosed 记录会话关闭
func SessionClosed() {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.IncrementCounter(MetricSessionsClosed, nil)
	}
}

// RecordEngineStatus 按状态名记录引擎调用结果
func RecordEngineStatus(op, status string) {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.IncrementCounter(MetricEngineStatus, map[string]string{"op": op, "status": status})
	}
}

// ObserveDecode 记录一次完整解码耗时（秒）
func ObserveDecode(seconds float64) {
	if m := GetGlobalMetrics(); m != nil {
		_ = m.ObserveHistogram(MetricDecodeSeconds, seconds, nil)
	}
}
