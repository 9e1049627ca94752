package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const MsgInvalidProfilePic = "Profile pic must be a base64 data URI"

type UpdateProfileMessage struct {
	Account    *Account `json:"-"`
	ProfilePic string   `json:"profilePic"`
	// OnResponse receives the updated account.
	OnResponse func(*Account)
}

func (e UpdateProfileMessage) Type() string { return "account.update_profile" }

type UpdateProfileHandler struct {
	deps Dependencies
}

func NewUpdateProfileHandler(deps Dependencies) *UpdateProfileHandler {
	return &UpdateProfileHandler{deps: deps.withDefaults()}
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		err := h.execute(ctx, event)
		h.deps.Metrics.RecordOutcome(OpUpdateProfile, outcomeOf(err))
		return err
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	if event.Account == nil {
		return ErrUnauthenticated.Clone()
	}

	if strings.TrimSpace(event.ProfilePic) == "" {
		return withMessage(ErrValidation, MsgProfilePicRequired)
	}

	blob, err := ParseDataURI(event.ProfilePic)
	if err != nil {
		return withMessage(ErrValidation, MsgInvalidProfilePic).WithMetadata(map[string]any{
			"reason": err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	key := avatarKey(event.Account.ID, blob.ContentType)
	avatarURL, err := h.deps.Blobs.Put(ctx, key, blob.ContentType, bytes.NewReader(blob.Data))
	if err != nil {
		return internalError(err, "failed to upload profile picture")
	}

	var updated *Account
	err = h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		updated, err = h.deps.Repo.Accounts().UpdateAvatarTx(ctx, tx, event.Account.ID, avatarURL)
		return err
	})
	if err != nil {
		return internalError(err, "failed to store profile picture")
	}

	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityAvatarUpdated,
		AccountID: updated.ID.String(),
		Email:     updated.Email,
		Metadata:  map[string]any{"avatar_ref": avatarURL},
	})

	if event.OnResponse != nil {
		event.OnResponse(updated)
	}

	return nil
}

// Blob is a decoded data URI.
type Blob struct {
	ContentType string
	Data        []byte
}

// ParseDataURI decodes a base64 data URI such as "data:image/png;base64,...".
func ParseDataURI(raw string) (Blob, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return Blob{}, fmt.Errorf("not a data URI")
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return Blob{}, fmt.Errorf("data URI has no payload")
	}

	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return Blob{}, fmt.Errorf("data URI must be base64 encoded")
	}

	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	contentType, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return Blob{}, fmt.Errorf("invalid media type: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Blob{}, fmt.Errorf("invalid base64 payload: %w", err)
	}

	if len(data) == 0 {
		return Blob{}, fmt.Errorf("data URI is empty")
	}

	return Blob{ContentType: contentType, Data: data}, nil
}

func avatarKey(accountID uuid.UUID, contentType string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("avatars/%s/%s%s", accountID, uuid.NewString(), ext)
}
