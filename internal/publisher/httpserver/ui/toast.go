package ui

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	appconsole "github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/console"
	"github.com/abhishekjohn84/transitionmarketingai-publisher/internal/publisher/observability"
)

const (
	eventToast           = "toast"
	eventVersionsChanged = "versions-changed"
)

// triggerEvents sets the HX-Trigger header. A notice becomes a toast; changed asks the
// state fragment to reload.
func triggerEvents(w http.ResponseWriter, r *http.Request, notice appconsole.Notice, changed bool) {
	events := make(map[string]any, 2)
	if !notice.Empty() {
		events[eventToast] = map[string]string{
			"message": notice.Message,
			"tone":    string(notice.Tone),
		}
	}
	if changed {
		events[eventVersionsChanged] = true
	}
	if len(events) == 0 {
		return
	}
	data, err := json.Marshal(events)
	if err != nil {
		observability.FromContext(r.Context()).Warn("marshal HX-Trigger payload failed", zap.Error(err))
		return
	}
	w.Header().Set("HX-Trigger", string(data))
}

func triggerToast(w http.ResponseWriter, r *http.Request, tone appconsole.Tone, message string) {
	triggerEvents(w, r, appconsole.Notice{Tone: tone, Message: message}, false)
}
