package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"tornedge/internal/features"
	"tornedge/internal/matching"
	"tornedge/internal/store"
)

// FilesRoute is the URL prefix shared files are served under.
const FilesRoute = "/files/"

var errNoMatch = errors.New("no matching fragment")

func (h *Handler) uploadImage(ctx context.Context, r *http.Request) (payload, error) {
	empty := payload{"image_id": ""}
	id, err := h.registerPhoto(ctx, r)
	if err != nil {
		return nil, fail(err, "Failed to upload image.", empty)
	}
	return payload{"message": "The image has been uploaded.", "image_id": id}, nil
}

func (h *Handler) uploadFile(ctx context.Context, r *http.Request) (payload, error) {
	id, err := formID(r)
	if err != nil {
		return nil, fail(err, "Failed to upload file.", nil)
	}
	if err := h.attachFile(ctx, r, id); err != nil {
		return nil, fail(err, "Failed to upload file.", nil)
	}
	return payload{"message": "The file has been uploaded."}, nil
}

func (h *Handler) downloadFile(ctx context.Context, r *http.Request) (payload, error) {
	empty := payload{"file_path": ""}
	id, err := formID(r)
	if err != nil {
		return nil, fail(err, "Failed to download the file.", empty)
	}
	matched, err := h.matchAgainst(ctx, id, h.store.FeaturesWithFile)
	if err != nil {
		return nil, fail(err, "Failed to download the file.", empty)
	}
	filePath, err := h.store.FilePath(ctx, matched)
	if err != nil {
		return nil, fail(err, "Failed to download the file.", empty)
	}
	return payload{
		"message":   "Successfully downloaded the file.",
		"file_path": filePath,
		"image_id":  matched,
	}, nil
}

func (h *Handler) createStubData(ctx context.Context, r *http.Request) (payload, error) {
	empty := payload{"image_id": "", "chat_room_id": ""}
	id, err := h.registerPhoto(ctx, r)
	if err != nil {
		return nil, fail(err, "Failed to create the stub data.", empty)
	}
	if err := h.attachFile(ctx, r, id); err != nil {
		return nil, fail(err, "Failed to create the stub data.", empty)
	}
	room, err := h.ensureChatRoom(ctx, id)
	if err != nil {
		return nil, fail(err, "Failed to create the stub data.", empty)
	}
	return payload{
		"message":      "Successfully created the stub data.",
		"image_id":     id,
		"chat_room_id": room,
	}, nil
}

func (h *Handler) createChatRoom(ctx context.Context, r *http.Request) (payload, error) {
	empty := payload{"chat_room_id": ""}
	id, err := formID(r)
	if err != nil {
		return nil, fail(err, "Failed to create the chat room.", empty)
	}
	room, err := h.ensureChatRoom(ctx, id)
	if err != nil {
		return nil, fail(err, "Failed to create the chat room.", empty)
	}
	return payload{"message": "Successfully created the chat room.", "chat_room_id": room}, nil
}

// enterChatRoom joins the room of the matching fragment. The partner's room
// id is cleared so the room cannot be entered twice.
func (h *Handler) enterChatRoom(ctx context.Context, r *http.Request) (payload, error) {
	empty := payload{"chat_room_id": ""}
	id, err := formID(r)
	if err != nil {
		return nil, fail(err, "Failed to enter the chat room.", empty)
	}
	matched, err := h.matchAgainst(ctx, id, h.store.FeaturesWithChatRoom)
	if err != nil {
		return nil, fail(err, "Failed to enter the chat room.", empty)
	}
	room, err := h.store.ChatRoomID(ctx, matched)
	if err != nil {
		return nil, fail(err, "Failed to enter the chat room.", empty)
	}
	if err := h.store.SetChatRoomID(ctx, matched, ""); err != nil {
		return nil, fail(err, "Failed to enter the chat room.", empty)
	}
	return payload{"message": "Successfully entered the chat room.", "chat_room_id": room}, nil
}

func (h *Handler) registerPhoto(ctx context.Context, r *http.Request) (int64, error) {
	_, photo, err := formFile(r, "image")
	if err != nil {
		return 0, err
	}
	fs, err := h.extractor.ExtractPhoto(ctx, photo)
	if err != nil {
		return 0, fmt.Errorf("extract features: %w", err)
	}
	return h.store.Register(ctx, fs)
}

func (h *Handler) attachFile(ctx context.Context, r *http.Request, id int64) error {
	name, data, err := formFile(r, "file")
	if err != nil {
		return err
	}
	rel, err := h.saveFile(name, data)
	if err != nil {
		return err
	}
	return h.store.SetFilePath(ctx, id, rel)
}

// saveFile stores an uploaded file under FilesDir and returns the URL path
// it is served from.
func (h *Handler) saveFile(name string, data []byte) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(h.opts.FilesDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(h.opts.FilesDir, base), data, 0o644); err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}
	return path.Join(FilesRoute, base), nil
}

// matchAgainst scores the stored fragment id against a candidate listing,
// leaving the fragment itself out.
func (h *Handler) matchAgainst(ctx context.Context, id int64, list func(context.Context) ([]matching.Candidate, error)) (int64, error) {
	query, err := h.store.FeaturesByID(ctx, id)
	if err != nil {
		return 0, err
	}
	all, err := list(ctx)
	if err != nil {
		return 0, err
	}
	self := store.FormatID(id)
	cands := make([]matching.Candidate, 0, len(all))
	for _, c := range all {
		if c.ID != self {
			cands = append(cands, c)
		}
	}

	res, err := h.engine.Match(features.Source(query), cands, h.opts.Match)
	if err != nil {
		return 0, err
	}
	if !res.Found {
		return 0, errNoMatch
	}
	return store.ParseID(res.ID)
}

func formID(r *http.Request) (int64, error) {
	raw := r.FormValue("image_id")
	if raw == "" {
		return 0, errors.New("missing image_id")
	}
	return store.ParseID(raw)
}

func formFile(r *http.Request, key string) (string, []byte, error) {
	f, hdr, err := r.FormFile(key)
	if err != nil {
		return "", nil, fmt.Errorf("form file %q: %w", key, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read form file %q: %w", key, err)
	}
	return hdr.Filename, data, nil
}
