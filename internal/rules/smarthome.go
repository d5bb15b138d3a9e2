package rules

import "github.com/eldercare/triage-core/internal/domain"

// ExtractSmartHome looks for a smart-home verb (on/off) and a noun (light,
// hvac, lock, ...) in the same utterance and, for low-risk devices, emits a
// SmartHome Intent directly with confirm=false. High-risk devices (front
// door lock, security system, payment) are never emitted from rules — ok
// is false so the caller falls through to the LLM/post-Guard path, per
// §4.2 "Direct smart-home extraction."
func ExtractSmartHome(text string) (domain.Intent, bool) {
	noun, nounOK := matchNoun(text)
	if !nounOK {
		return domain.Intent{}, false
	}

	action, actionOK := matchAction(text)
	if !actionOK {
		return domain.Intent{}, false
	}

	room := matchRoom(text)
	device := deviceName(noun, room)

	if noun.highRisk || HighRiskDevices[device] {
		return domain.Intent{}, false
	}

	return domain.Intent{
		Tag:     domain.IntentSmartHome,
		Device:  device,
		Action:  action,
		Room:    room,
		Confirm: false,
	}, true
}

func matchNoun(text string) (smartHomeNoun, bool) {
	for _, n := range smartHomeNouns {
		if _, ok := anyMatch(text, n.patterns); ok {
			return n, true
		}
	}
	return smartHomeNoun{}, false
}

func matchAction(text string) (string, bool) {
	if _, ok := anyMatch(text, onVerbs); ok {
		return "on", true
	}
	if _, ok := anyMatch(text, offVerbs); ok {
		return "off", true
	}
	return "", false
}

func matchRoom(text string) string {
	for room, patterns := range roomQualifiers {
		if _, ok := anyMatch(text, patterns); ok {
			return room
		}
	}
	return ""
}

// deviceName qualifies a bare device noun with its room, defaulting to
// bedroom when no room qualifier is present — matching the only concrete
// worked example available (§8 scenario 1: "living_room_light"; unqualified
// utterances default to the resident's bedroom).
func deviceName(n smartHomeNoun, room string) string {
	if n.device == "lock" {
		return "front_door_lock"
	}
	if room == "" {
		room = "bedroom"
	}
	return room + "_" + n.device
}
