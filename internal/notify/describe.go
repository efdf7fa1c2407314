package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgStageCompleted  = "Stage complete: %s."
	msgStreakMilestone = "%d-day learning streak! Keep it going."
)

var supported = language.NewMatcher([]language.Tag{
	language.English,
	language.Malay,
})

func init() {
	_ = message.SetString(language.Malay, msgStageCompleted, "Peringkat selesai: %s.")
	_ = message.SetString(language.Malay, msgStreakMilestone, "Rentetan pembelajaran %d hari! Teruskan.")
}

// Describe renders the human-readable message for an event in lang
// (a BCP 47 tag such as "en" or "ms"). Unknown languages fall back to English.
func Describe(event Event, lang string) string {
	tag, _ := language.Parse(lang)
	_, idx, _ := supported.Match(tag)
	p := message.NewPrinter([]language.Tag{language.English, language.Malay}[idx])

	switch event.Type {
	case TypeStageCompleted:
		name := event.StageID
		if name == "" {
			name = event.SkillID
		}
		return p.Sprintf(msgStageCompleted, name)
	case TypeStreakMilestone:
		return p.Sprintf(msgStreakMilestone, event.StreakDays)
	default:
		return event.Type
	}
}
