package protocol

import "fmt"

// Channel-B message type values. These appear in the "type" field of the
// flat study messages written to subscriber connections.
const (
	TypeStudyData  = "study_data"
	TypeStudyEvent = "study_event"
)

// StudyData is the full observed-state snapshot published to subscribers
// whenever any field changes. All fields are best-effort scrapes.
type StudyData struct {
	Type           string `json:"type"` // always TypeStudyData
	Accession      string `json:"accession"`
	Description    string `json:"description"`
	TemplateName   string `json:"templateName"`
	PatientName    string `json:"patientName"`
	PatientGender  string `json:"patientGender"`
	MRN            string `json:"mrn"`
	SiteCode       string `json:"siteCode"`
	ClarioPriority string `json:"clarioPriority"`
	ClarioClass    string `json:"clarioClass"`
	Drafted        bool   `json:"drafted"`
	HasCritical    bool   `json:"hasCritical"`
	Timestamp      string `json:"timestampISO8601"`
}

// EqualIgnoringTimestamp reports structural equality of the scraped fields.
// The timestamp is excluded: a republished-but-identical snapshot must not
// count as a change.
func (d StudyData) EqualIgnoringTimestamp(o StudyData) bool {
	d.Timestamp = ""
	o.Timestamp = ""
	return d == o
}

// Event kinds carried by StudyEvent.
const (
	EventKindSigned   = "signed"
	EventKindUnsigned = "unsigned"
)

// StudyEvent is the classified lifecycle event published exactly once per
// confirmed study closure.
type StudyEvent struct {
	Type        string `json:"type"` // always TypeStudyEvent
	Kind        string `json:"kind"` // EventKindSigned | EventKindUnsigned
	Accession   string `json:"accession"`
	HasCritical bool   `json:"hasCritical"`
}

// SignalCode is a channel-A legacy event code.
type SignalCode string

// The fixed legacy code set delivered to the external consumer process.
const (
	SignalStudySigned                 SignalCode = "STUDY_SIGNED"
	SignalStudySignedCritical         SignalCode = "STUDY_SIGNED_CRITICAL"
	SignalStudyClosedUnsigned         SignalCode = "STUDY_CLOSED_UNSIGNED"
	SignalStudyClosedUnsignedCritical SignalCode = "STUDY_CLOSED_UNSIGNED_CRITICAL"
)

// LegacySignal selects the channel-A code for a classified event.
func LegacySignal(kind string, critical bool) SignalCode {
	switch {
	case kind == EventKindSigned && critical:
		return SignalStudySignedCritical
	case kind == EventKindSigned:
		return SignalStudySigned
	case critical:
		return SignalStudyClosedUnsignedCritical
	default:
		return SignalStudyClosedUnsigned
	}
}

// FormatSignal produces the channel-A datagram body: "<CODE>:<accession>".
func FormatSignal(code SignalCode, accession string) string {
	return fmt.Sprintf("%s:%s", code, accession)
}
