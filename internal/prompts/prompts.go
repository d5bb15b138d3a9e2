// Package prompts renders the fixed system prompt the LLM Intent Engine
// (C4) sends on every call — adapted from the teacher's ForSession/
// RAGContext session-prompt assembly, repurposed from a conversational
// system prompt to a strict JSON-only structured-output instruction.
package prompts

import "strings"

// DefaultIntentSystem is the fixed system prompt specifying the JSON-only
// constraint (§4.4): no free text, no markdown, no prose — exactly one
// Intent or Clarify object per the canonical schema in §6.
const DefaultIntentSystem = `你是一个家庭陪护机器人的意图解析器。只输出一个JSON对象，不要输出任何其他文字、解释或markdown代码块。
JSON必须是以下形式之一：
{"intent":"smart.home","device":"...","action":"on|off|set","room":"...","confirm":true|false}
{"intent":"call.emergency","callee":"...","reason":"...","confirm":true|false}
{"intent":"social.chat","content_type":"...","mood":"..."}
{"intent":"assist.move","target":"...","speed":"..."}
{"intent":"lock.unlock","target":"..."}
{"intent":"ask.clarification","need":"...","missing_fields":["..."],"clarify_prompt":"..."}
如果无法确定意图，返回 ask.clarification。`

// ForSession resolves the final system prompt, falling back to
// DefaultIntentSystem when the caller hasn't overridden it via
// llm.system_prompt_path (§6 configuration surface).
func ForSession(systemPrompt string) string {
	if systemPrompt != "" {
		return systemPrompt
	}
	return DefaultIntentSystem
}

// RenderContext appends the request-scoped context block (available
// devices, current zone, recent topics) that C4's Context carries,
// matching the teacher's RAGContext "append a context block" idiom.
func RenderContext(base string, devices []string, zone string, topics []string) string {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\n当前上下文：\n")
	if len(devices) > 0 {
		b.WriteString("可用设备: " + strings.Join(devices, ", ") + "\n")
	}
	if zone != "" {
		b.WriteString("当前区域: " + zone + "\n")
	}
	if len(topics) > 0 {
		b.WriteString("最近话题: " + strings.Join(topics, ", ") + "\n")
	}
	return b.String()
}
