package router

import "github.com/zhouzirui/wikichat/internal/model/lookup"

const maxSuggestions = 5

const (
	replyGreeting = "Hello! How can I help you today?"
	replyIdentity = "I'm a Go chatbot that looks things up on Wikipedia and the web!"
	replyFarewell = "Goodbye! Have a great day."

	replyImageFound   = "🖼️ " + lookup.ImageCaptionMarker + " for '%s':\n%s"
	replyImageMissing = "❌ Sorry, I couldn't find an image for '%s' on Wikipedia."

	replySummary   = "📖 From Wikipedia:\n\n%s"
	replyAmbiguous = "⚠ That query is too broad. Did you mean: %s?"

	replySearchHeader = "🔎 From web search results:\n"
	replySearchItem   = "\n- %s\n  Snippet: %s\n"
	replyNothingFound = "❌ Sorry, I couldn't find anything on Wikipedia or the web for that."
	replySearchError  = "⚠ An error occurred during web search: %v"

	replyGenericError = "⚠ An error occurred: %v"
)
