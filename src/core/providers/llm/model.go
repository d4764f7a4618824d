package llm

import (
	"strings"
)

// 旧模型名到当前Groq别名的映射
// 属于版本化配置数据而非业务逻辑，可通过配置的 model_aliases 扩展，
// 不需要改动中继引擎。
var legacyModelAliases = map[string]string{
	"llama3-8b-8192":  "llama-3.1-8b-instant",
	"llama3-70b-8192": "llama-3.1-70b-versatile",
}

// 未配置模型名时的默认别名
const defaultModelName = "llama-3.3-70b-versatile"

// NormalizeModelName 归一化模型名：先查配置追加的映射，再查内置表，
// 空名回落到默认别名
func NormalizeModelName(name string, extra map[string]string) string {
	name = strings.TrimSpace(name)
	if extra != nil {
		if alias, ok := extra[name]; ok {
			return alias
		}
	}
	if alias, ok := legacyModelAliases[name]; ok {
		return alias
	}
	if name == "" {
		return defaultModelName
	}
	return name
}
