// internal/controller/tracking_controller.go
package controller

import (
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/craftcrm/campaign-engine/internal/service"
)

type TrackingController struct {
	TrackingService *service.TrackingService
}

// TrackClick resolves /t/{trackingCode}?r={recipientID} and 302-redirects to
// the original URL. Unknown codes and internal failures both redirect home;
// the end user never sees an error page.
func (c *TrackingController) TrackClick(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "trackingCode")
	recipientID, _ := strconv.Atoi(r.URL.Query().Get("r"))

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	destination, err := c.TrackingService.HandleClick(code, recipientID, ip, r.UserAgent())
	if err != nil {
		log.Println("⚠️ click handling error:", err)
	}
	if destination == "" {
		destination = "/"
	}

	http.Redirect(w, r, destination, http.StatusFound)
}
