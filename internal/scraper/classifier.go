package scraper

import "strings"

// Outcome is the classified result of a portal submission
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidCaptcha
	OutcomeRecordNotFound
	OutcomeInvalidData
	OutcomeNoListAvailable
)

// Server strings the portal answers with
const (
	invalidCaptchaText = "Invalid Captcha"
	recordNotFoundText = "Record Not Found"
	errorValSentinel   = `{"Error":"ERROR_VAL"}`
	noCauseListText    = "No cause List Available"
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeInvalidCaptcha:
		return "InvalidCaptcha"
	case OutcomeRecordNotFound:
		return "RecordNotFound"
	case OutcomeInvalidData:
		return "InvalidData"
	case OutcomeNoListAvailable:
		return "NoListAvailable"
	default:
		return "Unknown"
	}
}

// Message is the text reported to callers for a non-success outcome
func (o Outcome) Message() string {
	switch o {
	case OutcomeInvalidCaptcha:
		return invalidCaptchaText
	case OutcomeRecordNotFound:
		return recordNotFoundText
	case OutcomeInvalidData:
		return "Invalid Data"
	case OutcomeNoListAvailable:
		return "No cause List Available for this date...!!"
	default:
		return ""
	}
}

// ClassifyCaseStatus classifies the text of the case-status error banner.
// Anything that is not a known failure is a success.
func ClassifyCaseStatus(errText string) Outcome {
	switch strings.TrimSpace(errText) {
	case invalidCaptchaText:
		return OutcomeInvalidCaptcha
	case recordNotFoundText:
		return OutcomeRecordNotFound
	default:
		return OutcomeSuccess
	}
}

// ClassifyCauseList classifies the cause-list result container content.
//
// A payload is an invalid captcha when it equals the message, is contained
// in it (so an empty container counts) or contains it.
func ClassifyCauseList(html string) Outcome {
	switch {
	case html == invalidCaptchaText,
		strings.Contains(invalidCaptchaText, html),
		strings.Contains(html, invalidCaptchaText):
		return OutcomeInvalidCaptcha
	case html == errorValSentinel:
		return OutcomeInvalidData
	case strings.Contains(html, noCauseListText):
		return OutcomeNoListAvailable
	default:
		return OutcomeSuccess
	}
}
