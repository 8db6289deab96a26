package bot

import (
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// LoggingMiddleware creates a middleware that logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = nil
					if c.Chat() != nil {
						_ = c.Send("❌ Произошла внутренняя ошибка, попробуйте позже")
					}
				}
			}()
			return next(c)
		}
	}
}
