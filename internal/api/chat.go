package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var roomPattern = regexp.MustCompile(`^chat_room[0-9A-Za-z_]+$`)

func (h *Handler) ensureChatRoom(ctx context.Context, id int64) (string, error) {
	room, created, err := h.store.EnsureChatRoomID(ctx, id)
	if err != nil {
		return "", err
	}
	if created {
		if err := h.appendChat(room, fmt.Sprintf("%d, The chat room was created.", id), true); err != nil {
			return "", err
		}
	}
	return room, nil
}

func (h *Handler) sendChat(_ context.Context, r *http.Request) (payload, error) {
	empty := payload{"chat_log": []string{}}
	room := r.FormValue("chat_room_id")
	msg := r.FormValue("message")
	if err := h.appendChat(room, msg, false); err != nil {
		return nil, fail(err, "Failed to send the chat message.", empty)
	}
	lines, err := h.readChat(room)
	if err != nil {
		return nil, fail(err, "Failed to send the chat message.", empty)
	}
	return payload{"message": "Successfully sent the chat message.", "chat_log": lines}, nil
}

func (h *Handler) updateChat(_ context.Context, r *http.Request) (payload, error) {
	empty := payload{"chat_log": []string{}}
	lines, err := h.readChat(r.FormValue("chat_room_id"))
	if err != nil {
		return nil, fail(err, "Failed to update the chat log.", empty)
	}
	return payload{"message": "Successfully updated the chat log.", "chat_log": lines}, nil
}

func (h *Handler) chatLogPath(room string) (string, error) {
	if !roomPattern.MatchString(room) {
		return "", fmt.Errorf("invalid chat room id %q", room)
	}
	return filepath.Join(h.opts.ChatLogDir, room+".csv"), nil
}

// appendChat adds one line to a room log. create starts a new log and an
// existing room is required otherwise.
func (h *Handler) appendChat(room, line string, create bool) error {
	p, err := h.chatLogPath(room)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_APPEND
	if create {
		if err := os.MkdirAll(h.opts.ChatLogDir, 0o755); err != nil {
			return fmt.Errorf("create chat log dir: %w", err)
		}
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(p, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open chat log: %w", err)
	}
	if _, err := fmt.Fprintln(f, strings.ReplaceAll(line, "\n", " ")); err != nil {
		_ = f.Close()
		return fmt.Errorf("write chat log: %w", err)
	}
	return f.Close()
}

func (h *Handler) readChat(room string) ([]string, error) {
	p, err := h.chatLogPath(room)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chat room %s has no log: %w", room, err)
		}
		return nil, fmt.Errorf("open chat log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
