package analysis

import "github.com/sells-group/verdant/internal/progress"

// Reporter receives progress events for one analysis.
type Reporter func(typ progress.EventType, payload any)

func (r Reporter) emit(typ progress.EventType, payload any) {
	if r != nil {
		r(typ, payload)
	}
}

// SessionReporter binds a reporter to a session on a progress channel.
func SessionReporter(ch *progress.Channel, session string) Reporter {
	return func(typ progress.EventType, payload any) {
		ch.Publish(session, typ, payload)
	}
}
