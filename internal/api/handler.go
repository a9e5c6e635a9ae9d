// Package api serves the multipart command endpoint used by the mobile
// client to register fragments, share files and open chat rooms between the
// owners of two matching halves.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"tornedge/internal/features"
	"tornedge/internal/matching"
	"tornedge/internal/store"
)

// Extractor turns an uploaded photo into a fingerprint.
type Extractor interface {
	ExtractPhoto(ctx context.Context, photo []byte) (features.FeatureSet, error)
}

// Fragments is the persistence the handler needs.
type Fragments interface {
	Register(ctx context.Context, fs features.FeatureSet) (int64, error)
	SetFilePath(ctx context.Context, id int64, path string) error
	SetChatRoomID(ctx context.Context, id int64, room string) error
	EnsureChatRoomID(ctx context.Context, id int64) (string, bool, error)
	FeaturesByID(ctx context.Context, id int64) (features.Encoded, error)
	FeaturesWithFile(ctx context.Context) ([]matching.Candidate, error)
	FeaturesWithChatRoom(ctx context.Context) ([]matching.Candidate, error)
	FilePath(ctx context.Context, id int64) (string, error)
	ChatRoomID(ctx context.Context, id int64) (string, error)
}

var _ Fragments = (*store.Store)(nil)

// Options configures a Handler.
type Options struct {
	FilesDir       string
	ChatLogDir     string
	MaxUploadBytes int64
	Match          matching.Options
}

// Handler dispatches POST / commands by their "cmd" form field.
type Handler struct {
	extractor Extractor
	store     Fragments
	engine    *matching.Engine
	opts      Options
	log       zerolog.Logger
	commands  map[string]commandFunc
}

type commandFunc func(ctx context.Context, r *http.Request) (payload, error)

// payload is the "data" object of a response. Every response carries
// "result" and "message"; commands add their own keys.
type payload map[string]any

type response struct {
	Cmd  string  `json:"cmd"`
	Data payload `json:"data"`
}

// NewHandler wires a handler.
func NewHandler(ex Extractor, st Fragments, engine *matching.Engine, opts Options, log zerolog.Logger) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	h := &Handler{
		extractor: ex,
		store:     st,
		engine:    engine,
		opts:      opts,
		log:       log.With().Str("component", "api").Logger(),
	}
	h.commands = map[string]commandFunc{
		"upload_image":     h.uploadImage,
		"upload_file":      h.uploadFile,
		"download_file":    h.downloadFile,
		"create_stub_data": h.createStubData,
		"create_chat_room": h.createChatRoom,
		"enter_chat_room":  h.enterChatRoom,
		"send_chat":        h.sendChat,
		"update_chat":      h.updateChat,
	}
	return h
}

// failure carries the message and zero-valued fields reported when a
// command fails.
type failure struct {
	message string
	fields  payload
	err     error
}

func (f *failure) Error() string { return f.message + ": " + f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

func fail(err error, message string, fields payload) error {
	return &failure{message: message, fields: fields, err: err}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORS(w.Header())
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.opts.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	cmd := strings.TrimSpace(r.FormValue("cmd"))
	run, ok := h.commands[cmd]
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, response{Cmd: cmd, Data: payload{
			"result":  "failure",
			"message": "Unknown command.",
		}})
		return
	}

	log := h.log.With().Str("cmd", cmd).Logger()
	data, err := run(r.Context(), r)
	if err != nil {
		var f *failure
		data = payload{"message": "Request failed."}
		if errors.As(err, &f) {
			data = payload{"message": f.message}
			for k, v := range f.fields {
				data[k] = v
			}
		}
		data["result"] = "failure"
		log.Warn().Err(err).Msg("command failed")
		h.writeJSON(w, http.StatusOK, response{Cmd: cmd, Data: data})
		return
	}
	data["result"] = "success"
	log.Info().Interface("data", data).Msg("command done")
	h.writeJSON(w, http.StatusOK, response{Cmd: cmd, Data: data})
}

// setCORS lets the browser client call the API from any origin.
func setCORS(hd http.Header) {
	hd.Set("Access-Control-Allow-Origin", "*")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	setCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
