// Package diag mounts the controller's diagnostic HTTP surface: manual
// FBL/ZL command injection, an SSB state dump, a read-only SQL console
// over the event log, and recent pan/tilt/zoom/speed charts. Grounded on
// the teacher's internal/serialmux.AttachAdminRoutes and internal/db's
// tailsql mounting pattern, bound to the same tsweb.Debugger surface.
package diag

import (
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/soar-cam/trackerd/internal/eventlog"
	"github.com/soar-cam/trackerd/internal/fbl"
	"github.com/soar-cam/trackerd/internal/httputil"
	"github.com/soar-cam/trackerd/internal/serialport"
	"github.com/soar-cam/trackerd/internal/ssb"
	"github.com/soar-cam/trackerd/internal/version"
	"github.com/soar-cam/trackerd/internal/zoomlink"
)

//go:embed templates/*
var adminTemplateFS embed.FS

var sendFormTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-form.html.tmpl"))

type sendFormData struct {
	Title  string
	Action string
}

// Surface mounts the admin debug routes over the controller's
// collaborators. It never listens on a public address itself; the
// caller attaches AttachAdminRoutes to a mux bound to a
// localhost/Tailscale-only listener.
type Surface struct {
	fblLink *serialport.Link
	zlLink  *serialport.Link
	bus     *ssb.Bus
	db      *eventlog.DB
}

// New wires a Surface from the daemon's live collaborators.
func New(fblLink, zlLink *serialport.Link, bus *ssb.Bus, db *eventlog.DB) *Surface {
	return &Surface{fblLink: fblLink, zlLink: zlLink, bus: bus, db: db}
}

// AttachAdminRoutes mounts every debug route onto mux, matching the
// teacher's serialmux/db AttachAdminRoutes shape one route at a time.
func (s *Surface) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("fbl/send", "manually issue a raw FBL operation", s.handleFBLSendForm)
	debug.HandleSilentFunc("fbl/send-api", s.handleFBLSendAPI)
	debug.HandleFunc("zoom/send", "manually issue a raw zoom-link command", s.handleZoomSendForm)
	debug.HandleSilentFunc("zoom/send-api", s.handleZoomSendAPI)
	debug.Handle("state", "current shared state bus snapshot (JSON)", http.HandlerFunc(s.handleState))
	debug.Handle("charts", "recent pan/tilt/zoom/speed and recorder-state charts", http.HandlerFunc(s.handleCharts))
	debug.Handle("version", "build version of the running controller (JSON)", http.HandlerFunc(s.handleVersion))

	if s.db != nil {
		tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
		if err != nil {
			log.Printf("diag: failed to create tailsql server: %v", err)
		} else {
			tsql.SetDB("sqlite://eventlog.db", s.db.DB, &tailsql.DBOptions{Label: "Event Log"})
			debug.Handle("tailsql/", "read-only SQL console over the event log", tsql.NewMux())
		}
	}
}

func (s *Surface) handleFBLSendForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = sendFormTemplate.Execute(w, sendFormData{Title: "Send raw FBL command", Action: "send-api"})
}

func (s *Surface) handleZoomSendForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = sendFormTemplate.Execute(w, sendFormData{Title: "Send raw zoom-link command", Action: "send-api"})
}

// handleFBLSendAPI decodes an op code and hex payload, issues the
// request over the front-board link, and returns the decoded response.
func (s *Surface) handleFBLSendAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	opStr := strings.TrimSpace(r.FormValue("op"))
	opVal, err := strconv.ParseUint(strings.TrimPrefix(opStr, "0x"), 16, 8)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid op code %q: %v", opStr, err))
		return
	}
	payload, err := hex.DecodeString(strings.TrimSpace(r.FormValue("payload")))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid hex payload: %v", err))
		return
	}

	resp, err := fbl.Transact(s.fblLink, fbl.Op(opVal), payload)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("fbl transact failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"response_hex": hex.EncodeToString(resp)})
}

// handleZoomSendAPI decodes a raw hex frame and writes it over the
// fire-and-forget zoom link.
func (s *Surface) handleZoomSendAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	frame, err := hex.DecodeString(strings.TrimSpace(r.FormValue("payload")))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid hex frame: %v", err))
		return
	}
	if err := zoomlink.SendRaw(s.zlLink, frame); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("zoom send failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]int{"bytes_written": len(frame)})
}

func (s *Surface) handleState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.bus.Dump())
}

// handleVersion reports the build stamp of the running controller binary.
func (s *Surface) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}
