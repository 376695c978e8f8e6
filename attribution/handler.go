package attribution

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/enrollment"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/matching"
	"github.com/kbukum/speakerid/segment"
	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/server/middleware"
	"github.com/kbukum/speakerid/transcript"
	"github.com/kbukum/speakerid/unknown"
)

// AttributionResponse is the body of a successful attribution.
type AttributionResponse struct {
	RunID      string                 `json:"run_id"`
	Strategy   string                 `json:"strategy"`
	Records    []transcript.Record    `json:"records"`
	Transcript string                 `json:"transcript"`
	Unknown    []unknown.Entry        `json:"unknown"`
	Votes      []matching.ClusterVote `json:"votes,omitempty"`
	Stats      Stats                  `json:"stats"`
}

// IdentityView is one enrolled identity as listed by the API.
type IdentityView struct {
	Key         string   `json:"key"`
	DisplayName string   `json:"display_name"`
	ClipCount   int      `json:"clip_count"`
	Seconds     float64  `json:"seconds"`
	Sources     []string `json:"sources"`
}

// IdentitiesResponse lists the enrolled set and how it was built.
type IdentitiesResponse struct {
	Identities []IdentityView    `json:"identities"`
	Report     enrollment.Report `json:"report"`
}

// Handler serves the attribution API.
type Handler struct {
	svc *Service
	log *logger.Logger
}

// NewHandler creates a handler over svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, log: logger.Get("attribution.http")}
}

// Register mounts the API under /api/v1. guard, when non-nil, runs before
// the attribution route, which is the expensive one.
func (h *Handler) Register(r gin.IRouter, guard gin.HandlerFunc) {
	v1 := r.Group("/api/v1")
	attribute := []gin.HandlerFunc{h.Attribute}
	if guard != nil {
		attribute = append([]gin.HandlerFunc{guard}, attribute...)
	}
	v1.POST("/attributions", attribute...)
	v1.GET("/identities", h.Identities)
	v1.POST("/identities/reload", h.Reload)
}

// Attribute handles POST /api/v1/attributions.
//
// The multipart form carries the recording as "audio" and the segment
// document as a "segments" file or field. Optional fields: "participants"
// (repeated, or separated by ";"), "strategy", "smoothing".
func (h *Handler) Attribute(c *gin.Context) {
	ctx := logger.ContextWithRequestID(c.Request.Context(), c.GetHeader(middleware.HeaderRequestID))

	segs, err := readSegments(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	req := Request{
		Segments:     segs,
		Participants: SplitParticipants(c.PostFormArray("participants")...),
		Strategy:     strings.TrimSpace(c.PostForm("strategy")),
	}
	if v := strings.TrimSpace(c.PostForm("smoothing")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			server.RespondWithError(c, apperrors.InvalidInput("smoothing", err.Error()))
			return
		}
		req.Smoothing = &b
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("audio", "multipart file \"audio\" is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidInput("audio", err.Error()))
		return
	}
	defer f.Close()

	req.Recording, err = h.svc.LoadRecording(ctx, fh.Filename, f)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	res, err := h.svc.Attribute(ctx, req)
	if err != nil {
		h.log.WithContext(ctx).Warn("attribution request failed", logger.Fields(logger.FieldError, err.Error()))
		server.RespondWithError(c, err)
		return
	}

	dir := h.svc.Directory()
	server.RespondOK(c, AttributionResponse{
		RunID:      res.RunID,
		Strategy:   res.Strategy,
		Records:    transcript.Records(res.Turns, dir),
		Transcript: transcript.Text(res.Turns, dir),
		Unknown:    res.Unknown,
		Votes:      res.Votes,
		Stats:      res.Stats,
	})
}

// Identities handles GET /api/v1/identities.
func (h *Handler) Identities(c *gin.Context) {
	set, report, err := h.svc.Enrollment(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.identities(set, report))
}

// Reload handles POST /api/v1/identities/reload.
func (h *Handler) Reload(c *gin.Context) {
	set, report, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, h.identities(set, report))
}

func (h *Handler) identities(set *enrollment.Set, report enrollment.Report) IdentitiesResponse {
	dir := h.svc.Directory()
	ids := set.Identities()
	views := make([]IdentityView, 0, len(ids))
	for _, id := range ids {
		views = append(views, IdentityView{
			Key:         id.Key,
			DisplayName: dir.DisplayName(id.Key),
			ClipCount:   id.ClipCount,
			Seconds:     id.Seconds,
			Sources:     id.Sources,
		})
	}
	return IdentitiesResponse{Identities: views, Report: report}
}

func readSegments(c *gin.Context) ([]segment.Segment, error) {
	if fh, err := c.FormFile("segments"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.InvalidInput("segments", err.Error())
		}
		defer f.Close()
		return segment.Parse(f)
	}
	if v := c.PostForm("segments"); v != "" {
		return segment.Parse(strings.NewReader(v))
	}
	return nil, apperrors.InvalidInput("segments", "multipart file or field \"segments\" is required")
}

// SplitParticipants flattens participant values separated by ";" or
// newlines. Commas are kept since "first,last" is a single participant.
func SplitParticipants(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == '\n' }) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
