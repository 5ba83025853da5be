package md2pdf

// Stage is a state of the conversion state machine:
//
//	Received -> ContentResolved -> Rendered -> Templated -> PDFGenerated -> Delivered
//
// A failure can happen on any transition. ConversionError.Stage names the
// state the conversion was moving into when it failed.
type Stage int

const (
	StageReceived Stage = iota
	StageContentResolved
	StageRendered
	StageTemplated
	StagePDFGenerated
	StageDelivered
)

var stageNames = [...]string{
	StageReceived:        "Received",
	StageContentResolved: "ContentResolved",
	StageRendered:        "Rendered",
	StageTemplated:       "Templated",
	StagePDFGenerated:    "PDFGenerated",
	StageDelivered:       "Delivered",
}

var stageActions = [...]string{
	StageReceived:        "validating request",
	StageContentResolved: "resolving content",
	StageRendered:        "rendering markdown",
	StageTemplated:       "templating document",
	StagePDFGenerated:    "generating PDF",
	StageDelivered:       "delivering artifact",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

func (s Stage) action() string {
	if s < 0 || int(s) >= len(stageActions) {
		return "converting"
	}
	return stageActions[s]
}
