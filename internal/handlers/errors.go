package handlers

import (
	"log"
	"net/http"
)

// respondWithError logs err under logMsg (userMsg when empty) and sends
// userMsg to the trainee. Error responses describe session state at one
// moment, so they are never cached.
func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s (status %d): %v", logMsg, status, err)
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, userMsg, status)
}
