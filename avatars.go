package blogapi

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/blogapi/internal/apperr"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

const (
	avatarSize    = 256
	jpegQuality   = 80
	maxUploadSize = 10 << 20 // 10MB
)

// processAvatar decodes an uploaded image, center-crops it to a square,
// scales it down to avatarSize and encodes it as JPEG.
func processAvatar(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))

	out := min(side, avatarSize)
	dst := image.NewRGBA(image.Rect(0, 0, out, out))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (a *App) handleUploadAvatar(c echo.Context) error {
	file, err := c.FormFile("avatar")
	if err != nil {
		return apperr.E(apperr.Validation, "No avatar file provided")
	}
	if file.Size > maxUploadSize {
		return apperr.E(apperr.Validation, "File too large (max 10MB)")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processAvatar(src)
	if err != nil {
		return apperr.Wrap(apperr.Validation, err, "Invalid image")
	}

	var previous, key string
	acct, err := inTx(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		actor, err := a.principal(ctx, c, tx)
		if err != nil {
			return store.Account{}, err
		}
		target, err := tx.Users().GetByName(ctx, c.Param("username"))
		if err != nil {
			return store.Account{}, err
		}
		if err := auth.CheckOwner(actor.ID, actor.Role, target.ID, "user"); err != nil {
			return store.Account{}, err
		}
		previous = target.AvatarKey
		name := target.Username + "/" + uuid.NewString() + ".jpg"
		if err := a.Avatars.Put(ctx, name, "image/jpeg", data); err != nil {
			return store.Account{}, fmt.Errorf("store avatar: %w", err)
		}
		key = name
		return tx.Users().Update(ctx, target.Username, store.AccountPatch{AvatarKey: &key})
	})
	if err != nil {
		// Nothing references the new object once the transaction is gone.
		a.dropAvatar(c.Request().Context(), key)
		return err
	}
	a.dropAvatar(c.Request().Context(), previous)
	return c.JSON(http.StatusOK, a.accountView(acct))
}

// handleGetAvatar redirects to wherever the avatar backend serves the image.
func (a *App) handleGetAvatar(c echo.Context) error {
	acct, err := inView(c, a.Store, func(ctx context.Context, tx *store.Tx) (store.Account, error) {
		return tx.Users().GetByName(ctx, c.Param("username"))
	})
	if err != nil {
		return err
	}
	if acct.AvatarKey == "" {
		return apperr.E(apperr.NotFound, "User %s has no avatar", acct.Username)
	}
	url, err := a.Avatars.URL(c.Request().Context(), acct.AvatarKey)
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, url)
}

// dropAvatar removes a replaced or orphaned avatar. It still runs when the
// request context is already cancelled. Failures only leave an unreferenced
// object behind, so they are logged and ignored.
func (a *App) dropAvatar(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := a.Avatars.Delete(context.WithoutCancel(ctx), key); err != nil {
		a.Logger.Warn("delete avatar", "key", key, "err", err)
	}
}
