// Package syncclient pushes note and resource files to the remote service
// and pulls profile data back. Sync is best-effort in both directions:
// failures are logged and swallowed at this boundary, nothing is retried or
// queued, and local state is never rolled back. Partial sync is an accepted
// steady state, not an exceptional one.
package syncclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/codec"
	"github.com/starford/dagaz/internal/index"
	"github.com/starford/dagaz/internal/models"
	"github.com/starford/dagaz/internal/storage"
)

// Client talks to the remote sync service. Relative paths sent to the
// service mirror the local store layout, so the server sees the same
// notes/<user>/... tree the device keeps.
type Client struct {
	http   *resty.Client
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
}

// New creates a sync client against baseURL, authenticating with a bearer
// token when one is configured.
func New(baseURL, token string, timeout time.Duration, store storage.Provider, db *index.DB, logger *slog.Logger) *Client {
	hc := resty.New()
	hc.SetBaseURL(baseURL)
	if token != "" {
		hc.SetHeader("Authorization", "Bearer "+token)
	}
	if timeout > 0 {
		hc.SetTimeout(timeout)
	}
	return &Client{http: hc, store: store, db: db, logger: logger}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// UploadNote pushes a note's file to the remote service, then each image
// and audio resource it references as an independent unit of work. The
// returned error covers the note-file step only: a resource that fails its
// own upload is logged and never surfaces as an aggregate failure, and a
// note that will not decode still counts as uploaded.
func (c *Client) UploadNote(ctx context.Context, username, fileName string) error {
	rel, err := storage.RelPath(storage.KindNoteBlock, username, fileName)
	if err != nil {
		return err
	}
	data, err := c.store.Read(rel)
	if err != nil {
		return err
	}
	if err := c.uploadFile(ctx, rel, data); err != nil {
		c.logger.Warn("sync: note upload failed",
			slog.String("path", rel), slog.String("error", err.Error()))
		return err
	}
	c.logger.Debug("sync: note uploaded", slog.String("path", rel))

	note, err := codec.Decode(data)
	if err != nil {
		c.logger.Warn("sync: note undecodable, resources not uploaded",
			slog.String("path", rel), slog.String("error", err.Error()))
		return nil
	}

	// Resource uploads are unordered relative to each other; they are only
	// attempted after the note-file upload.
	var wg sync.WaitGroup
	for _, b := range note.Resources() {
		kind := storage.KindImage
		if b.Type == models.BlockAudio {
			kind = storage.KindAudio
		}
		resRel, relErr := storage.RelPath(kind, username, b.Data)
		if relErr != nil {
			c.logger.Warn("sync: bad resource reference",
				slog.String("username", username), slog.String("resource", b.Data))
			continue
		}
		wg.Add(1)
		go func(resRel string) {
			defer wg.Done()
			resData, readErr := c.store.Read(resRel)
			if readErr != nil {
				c.logger.Warn("sync: resource read failed",
					slog.String("path", resRel), slog.String("error", readErr.Error()))
				return
			}
			if upErr := c.uploadFile(ctx, resRel, resData); upErr != nil {
				c.logger.Warn("sync: resource upload failed",
					slog.String("path", resRel), slog.String("error", upErr.Error()))
				return
			}
			c.logger.Debug("sync: resource uploaded", slog.String("path", resRel))
		}(resRel)
	}
	wg.Wait()
	return nil
}

func (c *Client) uploadFile(ctx context.Context, rel string, data []byte) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		Put("/api/files/" + rel)
	if err != nil {
		return fmt.Errorf("syncclient: upload %s: %v: %w", rel, err, apperr.ErrRemote)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("syncclient: upload %s: status %d: %w", rel, res.StatusCode(), apperr.ErrRemote)
	}
	return nil
}

// RemoteProfile is the payload returned by the remote profile endpoint.
// AvatarData carries the avatar file bytes base64-encoded when the server
// includes them.
type RemoteProfile struct {
	Nickname   string `json:"nickname"`
	Motto      string `json:"motto"`
	Avatar     string `json:"avatar"`
	AvatarData string `json:"avatar_data,omitempty"`
}

// DownloadProfile fetches the remote profile fields for a user.
func (c *Client) DownloadProfile(ctx context.Context, username string) (*RemoteProfile, error) {
	var out RemoteProfile
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/api/profile/" + username)
	if err != nil {
		return nil, fmt.Errorf("syncclient: profile %s: %v: %w", username, err, apperr.ErrRemote)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("syncclient: profile %s: status %d: %w", username, res.StatusCode(), apperr.ErrRemote)
	}
	return &out, nil
}

// SyncProfile downloads remote profile data and merges it locally: the
// profile record is replaced in the index, and avatar bytes, when included,
// are persisted to the file store.
func (c *Client) SyncProfile(ctx context.Context, username string) (*models.ProfileRecord, error) {
	remote, err := c.DownloadProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	rec := models.ProfileRecord{
		Username: username,
		Nickname: remote.Nickname,
		Motto:    remote.Motto,
		Avatar:   remote.Avatar,
	}
	if err := c.db.UpsertProfile(rec); err != nil {
		return nil, err
	}

	if remote.Avatar != "" && remote.AvatarData != "" {
		raw, decErr := base64.StdEncoding.DecodeString(remote.AvatarData)
		if decErr != nil {
			c.logger.Warn("sync: avatar data undecodable",
				slog.String("username", username), slog.String("error", decErr.Error()))
		} else {
			rel, relErr := storage.RelPath(storage.KindAvatar, username, remote.Avatar)
			if relErr == nil {
				if wErr := c.store.Write(rel, raw); wErr != nil {
					c.logger.Warn("sync: avatar write failed",
						slog.String("path", rel), slog.String("error", wErr.Error()))
				}
			}
		}
	}

	saved, err := c.db.GetProfile(username)
	if err != nil {
		return nil, err
	}
	return saved, nil
}
