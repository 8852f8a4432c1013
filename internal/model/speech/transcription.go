package speech

import "fmt"

// TranscriptionKind tags the outcome of one capture.
type TranscriptionKind int

const (
	// Recognized means Text holds the spoken utterance.
	Recognized TranscriptionKind = iota
	// Unintelligible means audio arrived but no words were recognized.
	Unintelligible
	// TransportError means the recognizer could not be reached or failed.
	TransportError
)

func (k TranscriptionKind) String() string {
	switch k {
	case Recognized:
		return "recognized"
	case Unintelligible:
		return "unintelligible"
	case TransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("TranscriptionKind(%d)", int(k))
	}
}

const unintelligibleMessage = "Sorry, I could not understand the audio."

// Transcription is the result of transcribing one capture window.
type Transcription struct {
	Kind TranscriptionKind `json:"-"`
	Text string            `json:"text,omitempty"`
	// Message is the user-facing explanation for non-recognized outcomes.
	Message string `json:"message,omitempty"`
}

// OK reports whether the transcription produced an utterance.
func (t Transcription) OK() bool {
	return t.Kind == Recognized
}

// RecognizedText builds a successful transcription.
func RecognizedText(text string) Transcription {
	return Transcription{Kind: Recognized, Text: text}
}

// NotUnderstood builds the outcome for audio with no recognizable words.
func NotUnderstood() Transcription {
	return Transcription{Kind: Unintelligible, Message: unintelligibleMessage}
}

// RequestFailed builds the outcome for a recognizer failure.
func RequestFailed(err error) Transcription {
	return Transcription{Kind: TransportError, Message: fmt.Sprintf("Could not request results; %v", err)}
}
