package submit

import "fmt"

// Tone styles a status element.
type Tone string

const (
	ToneNone    Tone = ""
	ToneSuccess Tone = "success"
	ToneFailure Tone = "failure"
)

// Status is the view-model of a form's status element after a submission.
type Status struct {
	Visible bool   `json:"visible"`
	Tone    Tone   `json:"tone,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Succeeded reports a visible success status.
func (s Status) Succeeded() bool {
	return s.Visible && s.Tone == ToneSuccess
}

// Messages holds the fallback texts shown when the server gives none.
type Messages struct {
	Success    string
	Failure    string
	Downloaded string
	NotJSON    string
	// HTTPFailure is a format string receiving the status code.
	HTTPFailure string
}

// DefaultMessages mirrors the texts used by the pages.
func DefaultMessages() Messages {
	return Messages{
		Success:     "Succès.",
		Failure:     "Erreur.",
		Downloaded:  "Téléchargement réussi.",
		NotJSON:     "Error: response is not a valid JSON",
		HTTPFailure: "Erreur HTTP %d",
	}
}

func (m Messages) withDefaults() Messages {
	def := DefaultMessages()
	if m.Success == "" {
		m.Success = def.Success
	}
	if m.Failure == "" {
		m.Failure = def.Failure
	}
	if m.Downloaded == "" {
		m.Downloaded = def.Downloaded
	}
	if m.NotJSON == "" {
		m.NotJSON = def.NotJSON
	}
	if m.HTTPFailure == "" {
		m.HTTPFailure = def.HTTPFailure
	}
	return m
}

func (m Messages) success(text string) Status {
	if text == "" {
		text = m.Success
	}
	return Status{Visible: true, Tone: ToneSuccess, Text: text}
}

func (m Messages) failure(text string) Status {
	if text == "" {
		text = m.Failure
	}
	return Status{Visible: true, Tone: ToneFailure, Text: text}
}

func (m Messages) httpFailure(code int) Status {
	return m.failure(fmt.Sprintf(m.HTTPFailure, code))
}
