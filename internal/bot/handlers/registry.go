package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents an update handler with its registration
// metadata and middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllHandlers initializes and returns a map of all command and
// callback handlers. Free text and reply-keyboard buttons go through the
// default handler, which is wired separately as a bot option.
func RegisterAllHandlers(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/cancel"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "cancel",
		Handler:     NewCancelHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}

	handlers[cbDocuments] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     cbDocuments,
		Handler:     NewDocumentsHandler(deps),
		MatchType:   tgbot.MatchTypeExact,
	}
	handlers[cbDocPrefix] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     cbDocPrefix,
		Handler:     NewDocumentHandler(deps),
		MatchType:   tgbot.MatchTypePrefix,
	}
	handlers[cbConsultation] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     cbConsultation,
		Handler:     NewConsultationHandler(deps),
		MatchType:   tgbot.MatchTypeExact,
	}
	handlers[cbConsentYes] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     cbConsentYes,
		Handler:     NewConsentHandler(deps, true),
		MatchType:   tgbot.MatchTypeExact,
	}
	handlers[cbConsentNo] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     cbConsentNo,
		Handler:     NewConsentHandler(deps, false),
		MatchType:   tgbot.MatchTypeExact,
	}

	return handlers
}
