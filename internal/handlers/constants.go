package handlers

const (
	TraineeCookieName = "fce_trainee"
	CSRFFormField     = "csrf_token"

	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidCSRFToken    = "Invalid or missing form token, please reload the page"
	ErrInternalServerError = "Internal server error"
	ErrUnknownPart         = "Unknown exam part"
	ErrTooManyRequests     = "Too many exercises started, please wait a minute and try again"

	// Notices shown on a part page after a redirect
	NoticeSessionLost      = "Your session was interrupted and could not be restored. Please start again."
	NoticeInsufficientPool = "There is no other text available for this part."
	NoticeNoActiveSession  = "That action is no longer available. Here is where you left off."
	NoticeRecovered        = "Your exercise was restored after an interruption. The timer restarted with the default limit."
)

// notices maps the ?notice= query codes to their messages
var notices = map[string]string{
	"lost":       NoticeSessionLost,
	"no-other":   NoticeInsufficientPool,
	"transition": NoticeNoActiveSession,
}
