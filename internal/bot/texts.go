package bot

import (
	"fmt"
	"strings"

	"motivator/internal/domain"
)

type textKey int

const (
	txtWelcome textKey = iota
	txtHelp
	txtUnknown
	txtNotRegistered
	txtFailed
	txtMoodPrompt
	txtMoodLogged
	txtMoodUsage
	txtMotivateFailed
	txtFeedbackLove
	txtFeedbackLike
	txtFeedbackDislike
	txtFeedbackDuplicate
	txtFeedbackExpired
	txtPaused
	txtResumed
	txtFrequencySet
	txtFrequencyUsage
	txtLanguageSet
	txtLanguageUsage
	txtTimezoneSet
	txtTimezoneUsage
	txtWindowSet
	txtWindowUsage
	txtPeakSet
	txtPeakUsage
	txtGapSet
	txtGapUsage
	txtStyleSet
	txtStyleUsage
	txtBoostSet
	txtAutoAdjustSet
	txtOnOffUsage
	txtStatus
)

var texts = map[string]map[textKey]string{
	"en": {
		txtWelcome: "🌟 <b>Welcome, %s!</b> 🌟\n\n" +
			"I send you motivational messages throughout the day, at the hours that suit you best.\n\n" +
			"/mood - log how you're feeling\n/motivate - get motivation right now\n" +
			"/frequency - messages per day (1-5)\n/status - your settings\n/help - all commands\n\n" +
			"Let's start your journey to better mental wellness! 💪",
		txtHelp: "🤖 <b>Commands</b>\n\n" +
			"/mood [1-10] [note] - log your mood\n" +
			"/motivate - instant motivation\n" +
			"/frequency 1-5 - messages per day\n" +
			"/pause, /resume - stop or restart messages\n" +
			"/language en|de - language\n" +
			"/timezone Area/City - your timezone\n" +
			"/window HH:MM-HH:MM - when I may write\n" +
			"/peak morning|afternoon|evening HH:MM-HH:MM - preferred hours\n" +
			"/gap 1-6 - minimum hours between messages\n" +
			"/style peak_focused|even_spacing|random - spread of messages\n" +
			"/boost on|off - more support when your mood is low\n" +
			"/autoadjust on|off - learn your best hours from feedback\n" +
			"/status - your settings\n\n" +
			"Rate my messages with ❤️ 👍 👎 so I can learn when they help most. 💙",
		txtUnknown:           "Unknown command. Try /help",
		txtNotRegistered:     "Please send /start first.",
		txtFailed:            "Sorry, something went wrong. Please try again later! 🤗",
		txtMoodPrompt:        "🌈 <b>How are you feeling today?</b>\n\nChoose a number from 1 (very bad) to 10 (excellent):",
		txtMoodLogged:        "Thanks for sharing! Mood logged: %d/10 📝",
		txtMoodUsage:         "Usage: /mood 1-10 [note]",
		txtMotivateFailed:    "Sorry, there was an issue sending your motivation. Please try again later! 🤗",
		txtFeedbackLove:      "❤️ Thank you! So glad that message helped you!",
		txtFeedbackLike:      "👍 Thanks for the feedback! This helps me learn.",
		txtFeedbackDislike:   "👎 Thanks for your honest feedback. I'll try to send better messages.",
		txtFeedbackDuplicate: "You already rated this message.",
		txtFeedbackExpired:   "This message can no longer be rated.",
		txtPaused:            "⏸️ Messages paused. Use /resume to start again.",
		txtResumed:           "▶️ Messages resumed!",
		txtFrequencySet:      "📊 You'll get about %d message(s) per day.",
		txtFrequencyUsage:    "Usage: /frequency 1-5",
		txtLanguageSet:       "🇬🇧 Language set to English!",
		txtLanguageUsage:     "Usage: /language %s",
		txtTimezoneSet:       "🕐 Timezone set to %s.",
		txtTimezoneUsage:     "Usage: /timezone Europe/Berlin",
		txtWindowSet:         "🕐 I'll only write between %s.",
		txtWindowUsage:       "Usage: /window 08:00-22:00",
		txtPeakSet:           "⭐ %s peak set to %s.",
		txtPeakUsage:         "Usage: /peak morning|afternoon|evening 08:00-10:00",
		txtGapSet:            "⏱️ At least %d hour(s) between messages.",
		txtGapUsage:          "Usage: /gap 1-6",
		txtStyleSet:          "📐 Distribution style: %s.",
		txtStyleUsage:        "Usage: /style peak_focused|even_spacing|random",
		txtBoostSet:          "💙 Mood boost: %s.",
		txtAutoAdjustSet:     "🧠 Auto-adjust: %s.",
		txtOnOffUsage:        "Usage: /%s on|off",
		txtStatus: "📊 <b>Your settings</b>\n\n" +
			"Messages: %s, %d per day\nLanguage: %s\nTimezone: %s\n" +
			"Window: %s\nPeaks: %s\nMinimum gap: %dh\nStyle: %s\nMood boost: %s\nAuto-adjust: %s\n\n" +
			"<b>Mood (last 7 days)</b>\nEntries: %d%s",
	},
	"de": {
		txtWelcome: "🌟 <b>Willkommen, %s!</b> 🌟\n\n" +
			"Ich schicke dir über den Tag verteilt motivierende Nachrichten, zu den Zeiten, die am besten zu dir passen.\n\n" +
			"/mood - Stimmung eingeben\n/motivate - sofortige Motivation\n" +
			"/frequency - Nachrichten pro Tag (1-5)\n/status - deine Einstellungen\n/help - alle Befehle\n\n" +
			"Lass uns deine Reise zu besserem mentalen Wohlbefinden beginnen! 💪",
		txtHelp: "🤖 <b>Befehle</b>\n\n" +
			"/mood [1-10] [Notiz] - Stimmung eingeben\n" +
			"/motivate - sofortige Motivation\n" +
			"/frequency 1-5 - Nachrichten pro Tag\n" +
			"/pause, /resume - Nachrichten pausieren oder fortsetzen\n" +
			"/language en|de - Sprache\n" +
			"/timezone Gebiet/Stadt - deine Zeitzone\n" +
			"/window HH:MM-HH:MM - wann ich schreiben darf\n" +
			"/peak morning|afternoon|evening HH:MM-HH:MM - bevorzugte Zeiten\n" +
			"/gap 1-6 - Mindestabstand in Stunden\n" +
			"/style peak_focused|even_spacing|random - Verteilung der Nachrichten\n" +
			"/boost on|off - mehr Unterstützung bei schlechter Stimmung\n" +
			"/autoadjust on|off - beste Zeiten aus deinem Feedback lernen\n" +
			"/status - deine Einstellungen\n\n" +
			"Bewerte meine Nachrichten mit ❤️ 👍 👎, damit ich lerne, wann sie am meisten helfen. 💙",
		txtUnknown:           "Unbekannter Befehl. Versuche /help",
		txtNotRegistered:     "Bitte sende zuerst /start.",
		txtFailed:            "Entschuldigung, etwas ist schiefgelaufen. Versuche es später nochmal! 🤗",
		txtMoodPrompt:        "🌈 <b>Wie fühlst du dich heute?</b>\n\nWähle eine Zahl von 1 (sehr schlecht) bis 10 (ausgezeichnet):",
		txtMoodLogged:        "Danke für dein Feedback! Stimmung: %d/10 📝",
		txtMoodUsage:         "Verwendung: /mood 1-10 [Notiz]",
		txtMotivateFailed:    "Entschuldigung, es gab ein Problem beim Senden deiner Motivation. Versuche es später nochmal! 🤗",
		txtFeedbackLove:      "❤️ Vielen Dank! Freut mich, dass dir die Nachricht geholfen hat!",
		txtFeedbackLike:      "👍 Danke für dein Feedback! Das hilft mir zu lernen.",
		txtFeedbackDislike:   "👎 Danke für dein ehrliches Feedback. Ich werde versuchen, bessere Nachrichten zu senden.",
		txtFeedbackDuplicate: "Du hast diese Nachricht bereits bewertet.",
		txtFeedbackExpired:   "Diese Nachricht kann nicht mehr bewertet werden.",
		txtPaused:            "⏸️ Nachrichten pausiert. Mit /resume geht es weiter.",
		txtResumed:           "▶️ Nachrichten wieder aktiviert!",
		txtFrequencySet:      "📊 Du bekommst etwa %d Nachricht(en) pro Tag.",
		txtFrequencyUsage:    "Verwendung: /frequency 1-5",
		txtLanguageSet:       "🇩🇪 Sprache auf Deutsch eingestellt!",
		txtLanguageUsage:     "Verwendung: /language %s",
		txtTimezoneSet:       "🕐 Zeitzone auf %s gesetzt.",
		txtTimezoneUsage:     "Verwendung: /timezone Europe/Berlin",
		txtWindowSet:         "🕐 Ich schreibe nur zwischen %s.",
		txtWindowUsage:       "Verwendung: /window 08:00-22:00",
		txtPeakSet:           "⭐ Zeitfenster %s auf %s gesetzt.",
		txtPeakUsage:         "Verwendung: /peak morning|afternoon|evening 08:00-10:00",
		txtGapSet:            "⏱️ Mindestens %d Stunde(n) zwischen Nachrichten.",
		txtGapUsage:          "Verwendung: /gap 1-6",
		txtStyleSet:          "📐 Verteilung: %s.",
		txtStyleUsage:        "Verwendung: /style peak_focused|even_spacing|random",
		txtBoostSet:          "💙 Stimmungs-Boost: %s.",
		txtAutoAdjustSet:     "🧠 Automatische Anpassung: %s.",
		txtOnOffUsage:        "Verwendung: /%s on|off",
		txtStatus: "📊 <b>Deine Einstellungen</b>\n\n" +
			"Nachrichten: %s, %d pro Tag\nSprache: %s\nZeitzone: %s\n" +
			"Zeitfenster: %s\nSpitzenzeiten: %s\nMindestabstand: %dh\nVerteilung: %s\nStimmungs-Boost: %s\nAutomatische Anpassung: %s\n\n" +
			"<b>Stimmung (letzte 7 Tage)</b>\nEinträge: %d%s",
	},
}

// tr formats key in lang, falling back to English.
func tr(lang string, key textKey, args ...any) string {
	m, ok := texts[lang]
	if !ok {
		m = texts[domain.DefaultLanguage]
	}
	s, ok := m[key]
	if !ok {
		s = texts[domain.DefaultLanguage][key]
	}
	if len(args) == 0 {
		return s
	}
	return fmt.Sprintf(s, args...)
}

func onOff(lang string, v bool) string {
	switch {
	case v && lang == "de":
		return "an"
	case v:
		return "on"
	case lang == "de":
		return "aus"
	default:
		return "off"
	}
}

func activeLabel(lang string, active bool) string {
	switch {
	case active && lang == "de":
		return "aktiv"
	case active:
		return "active"
	case lang == "de":
		return "pausiert"
	default:
		return "paused"
	}
}

func averageLabel(lang string, avg float64, n int) string {
	if n == 0 {
		return ""
	}
	if lang == "de" {
		return fmt.Sprintf("\nDurchschnitt: %.1f/10", avg)
	}
	return fmt.Sprintf("\nAverage: %.1f/10", avg)
}

func joinWindows(ws [3]domain.Window) string {
	parts := make([]string, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, w.String())
	}
	return strings.Join(parts, ", ")
}
