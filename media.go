package gotweet

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

const (
	uploadPath = "1.1/media/upload.json"

	// mediaSegmentSize is the APPEND chunk size.
	mediaSegmentSize = 4 << 20
	// maxProcessingWait bounds STATUS polling when the API keeps reporting progress.
	maxProcessingWait = 10 * time.Minute
)

type mediaUploadResponse struct {
	MediaID        int64                `json:"media_id"`
	MediaIDString  string               `json:"media_id_string"`
	ProcessingInfo *mediaProcessingInfo `json:"processing_info,omitempty"`
}

type mediaProcessingInfo struct {
	State           types.ProcessingState `json:"state"`
	CheckAfterSecs  int                   `json:"check_after_secs"`
	ProgressPercent int                   `json:"progress_percent"`
	Error           *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r *mediaUploadResponse) id() string {
	if r.MediaIDString != "" {
		return r.MediaIDString
	}
	if r.MediaID != 0 {
		return strconv.FormatInt(r.MediaID, 10)
	}
	return ""
}

// OpenMedia opens the file at path for upload. The MIME type is sniffed from
// the content and an empty category is derived from it. The caller must Close
// the returned file.
func OpenMedia(path string, category types.MediaCategory) (*types.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ValidationError{Field: "media", Message: err.Error()}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &ValidationError{Field: "media", Message: err.Error()}
	}
	if info.IsDir() || info.Size() == 0 {
		f.Close()
		return nil, &ValidationError{Field: "media", Message: path + " is not a non-empty file"}
	}

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return nil, &ValidationError{Field: "media", Message: err.Error()}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, &ValidationError{Field: "media", Message: err.Error()}
	}

	if category == "" {
		category = categoryFor(mtype.String(), false)
	}

	return &types.File{
		Name:     filepath.Base(path),
		Reader:   f,
		Size:     info.Size(),
		MimeType: mtype.String(),
		Category: category,
	}, nil
}

// categoryFor maps a MIME type to the upload category for tweets or DMs.
func categoryFor(mimeType string, dm bool) types.MediaCategory {
	switch {
	case mimeType == "image/gif" && dm:
		return types.CategoryDMGIF
	case mimeType == "image/gif":
		return types.CategoryTweetGIF
	case strings.HasPrefix(mimeType, "video/") && dm:
		return types.CategoryDMVideo
	case strings.HasPrefix(mimeType, "video/"):
		return types.CategoryTweetVideo
	case dm:
		return types.CategoryDMImage
	}
	return types.CategoryTweetImage
}

// UploadMedia uploads file with the chunked INIT, APPEND and FINALIZE
// commands and waits until asynchronous processing has finished.
// It returns the media id to attach to a tweet or direct message.
func (c *Client) UploadMedia(ctx context.Context, file *types.File) (string, error) {
	if file == nil || file.Reader == nil {
		return "", &ValidationError{Field: "media", Message: "file has no reader"}
	}
	if err := c.requireUser(ctx); err != nil {
		return "", err
	}

	reader := file.Reader
	size := file.Size
	if size <= 0 {
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", wrap("upload media", err)
		}
		reader, size = bytes.NewReader(data), int64(len(data))
	}
	if size == 0 {
		return "", &ValidationError{Field: "media", Message: "file is empty"}
	}

	first := make([]byte, min(size, mediaSegmentSize))
	n, err := io.ReadFull(reader, first)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", wrap("upload media", err)
	}
	first = first[:n]

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(first).String()
	}
	category := file.Category
	if category == "" {
		category = categoryFor(mimeType, file.DMOnly)
	}

	logger := c.logger.With().Str("file", file.Name).Int64("size", size).Str("media_type", mimeType).Logger()

	initForm := url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.FormatInt(size, 10)},
		"media_type":     {mimeType},
		"media_category": {string(category)},
	}
	if file.DMOnly {
		initForm.Set("shared", "true")
	}

	var initResp mediaUploadResponse
	if err := c.sendForm(ctx, internal.HostUpload, uploadPath, initForm, &initResp); err != nil {
		return "", wrap("upload media INIT", err)
	}
	mediaID := initResp.id()
	if mediaID == "" {
		return "", wrap("upload media INIT", &ParseError{Operation: "upload media", Message: "response has no media id"})
	}
	logger = logger.With().Str("media_id", mediaID).Logger()

	segment := first
	for index := 0; len(segment) > 0; index++ {
		if err := c.appendSegment(ctx, mediaID, index, segment); err != nil {
			return "", wrap("upload media APPEND", err)
		}
		logger.Debug().Int("segment_index", index).Int("bytes", len(segment)).Msg("media segment uploaded")

		buf := make([]byte, mediaSegmentSize)
		n, err := io.ReadFull(reader, buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return "", wrap("upload media APPEND", err)
		}
		segment = buf[:n]
	}

	var finalResp mediaUploadResponse
	finalize := url.Values{"command": {"FINALIZE"}, "media_id": {mediaID}}
	if err := c.sendForm(ctx, internal.HostUpload, uploadPath, finalize, &finalResp); err != nil {
		return "", wrap("upload media FINALIZE", err)
	}

	if err := c.waitForProcessing(ctx, mediaID, finalResp.ProcessingInfo); err != nil {
		return "", wrap("upload media STATUS", err)
	}

	logger.Debug().Msg("media uploaded")
	return mediaID, nil
}

func (c *Client) appendSegment(ctx context.Context, mediaID string, index int, data []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for key, value := range map[string]string{
		"command":       "APPEND",
		"media_id":      mediaID,
		"segment_index": strconv.Itoa(index),
	} {
		if err := w.WriteField(key, value); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("media", "blob")
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := c.client.NewHostRequest(ctx, internal.HostUpload, http.MethodPost, uploadPath, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, userAuth, nil)
}

// errStillProcessing keeps STATUS polling going.
var errStillProcessing = errors.New("media is still processing")

// waitForProcessing polls STATUS until the media succeeded or failed. The
// interval follows check_after_secs and falls back to exponential backoff.
func (c *Client) waitForProcessing(ctx context.Context, mediaID string, info *mediaProcessingInfo) error {
	if info == nil {
		return nil
	}

	fallback := backoff.NewExponentialBackOff()
	fallback.MaxElapsedTime = maxProcessingWait
	fallback.Reset()
	policy := &checkAfterBackOff{fallback: fallback}
	policy.set(info.CheckAfterSecs)

	state := info
	operation := func() error {
		switch state.State {
		case types.ProcessingSucceeded:
			return nil
		case types.ProcessingFailed:
			msg := "media processing failed"
			if state.Error != nil && state.Error.Message != "" {
				msg = state.Error.Message
			}
			return backoff.Permanent(&ValidationError{Field: "media", Message: msg})
		}
		return errStillProcessing
	}

	poll := func(_ error, wait time.Duration) {
		c.logger.Debug().Str("media_id", mediaID).Str("state", string(state.State)).Int("progress", state.ProgressPercent).Dur("check_after", wait).Msg("waiting for media processing")
	}

	// The first check uses the FINALIZE response; later checks poll STATUS.
	checked := false
	return backoff.RetryNotify(func() error {
		if checked {
			next, err := c.mediaStatus(ctx, mediaID)
			if err != nil {
				return backoff.Permanent(err)
			}
			if next == nil {
				return nil
			}
			state = next
			policy.set(state.CheckAfterSecs)
		}
		checked = true
		return operation()
	}, backoff.WithContext(policy, ctx), poll)
}

func (c *Client) mediaStatus(ctx context.Context, mediaID string) (*mediaProcessingInfo, error) {
	req, err := c.client.NewHostRequest(ctx, internal.HostUpload, http.MethodGet, uploadPath, nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = url.Values{"command": {"STATUS"}, "media_id": {mediaID}}.Encode()

	var resp mediaUploadResponse
	if err := c.send(req, userAuth, &resp); err != nil {
		return nil, err
	}
	return resp.ProcessingInfo, nil
}

// checkAfterBackOff waits the server supplied check_after_secs when known.
type checkAfterBackOff struct {
	fallback *backoff.ExponentialBackOff
	next     time.Duration
}

func (b *checkAfterBackOff) set(seconds int) {
	if seconds > 0 {
		b.next = time.Duration(seconds) * time.Second
	}
}

// NextBackOff returns the pending hint without advancing the fallback, so a
// hint does not inflate the interval used once hints stop arriving.
func (b *checkAfterBackOff) NextBackOff() time.Duration {
	if b.next > 0 {
		if limit := b.fallback.MaxElapsedTime; limit != 0 && b.fallback.GetElapsedTime() > limit {
			return backoff.Stop
		}
		d := b.next
		b.next = 0
		return d
	}
	return b.fallback.NextBackOff()
}

func (b *checkAfterBackOff) Reset() {
	b.fallback.Reset()
}
