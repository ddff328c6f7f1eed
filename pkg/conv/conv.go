// Package conv 提供类型转换与配置取值的工具，用于简化各模块中的重复逻辑。
package conv

// ToInt64 将 any 转为 int64。
// 支持 int、int64、int32、float64、float32。
func ToInt64(v any) (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	default:
		return 0, false
	}
}

// ConfigGetInt64 从配置 map 中取 int64（yaml 解析出的数值可能是 int 或 float64）。
func ConfigGetInt64(config map[string]any, key string, def int64) int64 {
	if config == nil {
		return def
	}
	if v, ok := config[key]; ok {
		if n, ok := ToInt64(v); ok {
			return n
		}
	}
	return def
}

// SliceAnyToString 将 []any 转为 []string，跳过非 string 元素；输入不是 []any 时返回 nil。
func SliceAnyToString(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
