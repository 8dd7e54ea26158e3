package resolver

// Intent is the caller's purpose when resolving a reference.
type Intent string

// Supported intents.
const (
	// IntentView renders the file inline in the browser.
	IntentView Intent = "view"
	// IntentDownload forces an attachment save.
	IntentDownload Intent = "download"
)

// PlanKind discriminates the ways a resolved reference can be rendered.
type PlanKind string

// Render plan kinds.
const (
	// PlanServeBytes serves fetched or local content directly.
	PlanServeBytes PlanKind = "serve_bytes"
	// PlanRedirect sends the browser to the raw URL.
	PlanRedirect PlanKind = "redirect"
	// PlanEmbedViewer serves a minimal HTML page wrapping a viewer iframe.
	PlanEmbedViewer PlanKind = "embed_viewer"
)

// Disposition values for served bytes.
const (
	DispositionInline     = "inline"
	DispositionAttachment = "attachment"
)

// Plan describes how to render a resolved reference. Exactly the fields
// relevant to Kind are populated.
type Plan struct {
	Kind PlanKind

	// ServeBytes fields.
	Content     []byte
	MIMEType    string
	Disposition string
	Filename    string

	// Redirect field.
	Location string

	// EmbedViewer field.
	HTML string
}
