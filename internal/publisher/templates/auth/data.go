package auth

// Tones accepted by Notice. They map onto the alert--* classes in app.css.
const (
	ToneSuccess = "success"
	ToneWarning = "warning"
	ToneError   = "error"
)

// Notice is the banner above the sign in form.
type Notice struct {
	Text string
	Tone string
}

// LoginPageData is the sign in screen state.
type LoginPageData struct {
	Notice Notice
	// Next is where a successful sign in lands, already restricted to the console mount.
	Next   string
	Action string
}

// Blocking reports whether the notice describes a failed attempt.
func (d LoginPageData) Blocking() bool {
	return d.Notice.Tone == ToneError && d.Notice.Text != ""
}
