package protocol

// Kind identifies an automation action that can be queued on the executor.
type Kind string

const (
	KindInsertMacro   Kind = "insert_macro"   // Paste matching macro bodies into the report.
	KindAutoFix       Kind = "auto_fix"       // Apply deterministic text corrections to the report.
	KindCriticalNote  Kind = "critical_note"  // Paste a critical findings note and track the study.
	KindSignReport    Kind = "sign_report"    // Send the host application's sign key sequence.
	KindDiscardReport Kind = "discard_report" // Send the host application's discard key sequence.
	KindSelectAll     Kind = "select_all"     // Trailing bulk-select action fired by the completion gate.
	KindResync        Kind = "resync"         // Force a fresh snapshot and republish state.
)

// Valid reports whether k is one of the known action kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindInsertMacro, KindAutoFix, KindCriticalNote, KindSignReport,
		KindDiscardReport, KindSelectAll, KindResync:
		return true
	default:
		return false
	}
}

// Trigger sources. Interactive sources come from a human input device and
// may have modifier keys still held down when the action runs.
const (
	SourceHotkey   = "hotkey"
	SourceButton   = "button"
	SourceUI       = "ui"
	SourceInternal = "internal"
	SourceGate     = "gate"
)

// InteractiveSource reports whether a trigger source is a human input path.
func InteractiveSource(source string) bool {
	switch source {
	case SourceHotkey, SourceButton, SourceUI:
		return true
	default:
		return false
	}
}
