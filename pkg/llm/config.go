package llm

import "time"

// 供应商配置 map 的通用键，由 pkg/options/llm 生成。
const (
	KeyBaseURL     = "base_url"
	KeyAPIKey      = "api_key"
	KeyEmbedModel  = "embed_model"
	KeyChatModel   = "chat_model"
	KeyTimeout     = "timeout"
	KeyMaxRetries  = "max_retries"
	KeyTemperature = "temperature"
	KeyMaxTokens   = "max_tokens"
)

// String 读取非空字符串配置。
func String(m map[string]any, key string, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Duration 读取正的时长配置。
func Duration(m map[string]any, key string, def time.Duration) time.Duration {
	if v, ok := m[key].(time.Duration); ok && v > 0 {
		return v
	}
	return def
}

// Int 读取非负整数配置；0 是合法值（例如关闭重试）。
func Int(m map[string]any, key string, def int) int {
	if v, ok := m[key].(int); ok && v >= 0 {
		return v
	}
	return def
}

// Float 读取浮点配置。
func Float(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return def
}
