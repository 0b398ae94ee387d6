package uploads

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"beastfood/internal/apierr"
	"beastfood/pkg/logger"
)

const (
	MaxSize   = 10 << 20
	formField = "image"
)

// allowed maps sniffed MIME types to the stored file extension.
var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Handler struct {
	Dir string
	// URLPrefix is where Dir is served, e.g. /uploads.
	URLPrefix string
	Log       *logger.Logger
}

func NewHandler(dir, urlPrefix string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{Dir: dir, URLPrefix: urlPrefix, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.POST("", requireAuth, h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	// Leave room for the multipart envelope around the file.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxSize+1<<20)

	fh, err := c.FormFile(formField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'image' is required"})
		return
	}
	if fh.Size > MaxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds 10MB"})
		return
	}

	src, err := fh.Open()
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	defer src.Close()

	mt, err := mimetype.DetectReader(src)
	if err != nil {
		apierr.Respond(c, err)
		return
	}
	ext, ok := allowed[mt.String()]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only jpeg, png, gif and webp images are accepted"})
		return
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		apierr.Respond(c, err)
		return
	}

	name := uuid.NewString() + ext
	if err := h.save(src, name); err != nil {
		h.Log.Error("store upload failed", "file", name, "error", err)
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":       h.URLPrefix + "/" + name,
		"filename":  name,
		"mime_type": mt.String(),
		"size":      fh.Size,
	})
}

func (h *Handler) save(src io.Reader, name string) error {
	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(h.Dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}
